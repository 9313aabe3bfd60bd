package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/shelfkeeper/internal/inventory"
	"github.com/erazemk/shelfkeeper/internal/model"
	"github.com/erazemk/shelfkeeper/internal/viewmodel"
)

type inventoryPage struct {
	PageData
	Inventory viewmodel.Inventory
	Form      containerForm
}

// containerForm echoes submitted values back after a failed add.
type containerForm struct {
	Shelf   string
	Row     string
	Expires string
}

// InventoryPage handles GET /.
func (s *Server) InventoryPage(w http.ResponseWriter, r *http.Request) {
	user := GetWebUser(r.Context())

	productID, err := productFilter(r)
	if err != nil {
		http.Error(w, "invalid product_id", http.StatusBadRequest)
		return
	}

	s.renderInventory(w, r, http.StatusOK, &PageData{
		Title:   "Inventory",
		User:    user,
		Success: r.URL.Query().Get("success"),
	}, productID, containerForm{})
}

// ContainerCreateSubmit handles POST /inventory/containers.
func (s *Server) ContainerCreateSubmit(w http.ResponseWriter, r *http.Request) {
	user := GetWebUser(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := containerForm{
		Shelf:   r.PostFormValue("shelf"),
		Row:     r.PostFormValue("row"),
		Expires: r.PostFormValue("expires"),
	}
	p := &inventory.ContainerPayload{
		Shelf:   form.Shelf,
		Row:     form.Row,
		Expires: form.Expires,
	}
	p.SetContents(formContents(r.PostForm["product_id"], r.PostForm["concentration"]))

	c, err := s.Containers.Create(r.Context(), user, p)
	if err != nil {
		var verr *inventory.ValidationError
		if errors.As(err, &verr) {
			s.renderInventory(w, r, http.StatusUnprocessableEntity, &PageData{
				Title:  "Inventory",
				User:   user,
				Errors: verr.Errors,
			}, 0, form)
			return
		}
		slog.Error("failed to create container", "error", err)
		http.Error(w, "failed to create container", http.StatusInternalServerError)
		return
	}

	slog.Info("container added from web", "id", c.ID, "user", user.Username)
	http.Redirect(w, r, "/?success=Container+added", http.StatusSeeOther)
}

type containerPage struct {
	PageData
	Container  *model.Container
	Names      map[int64]string
	NearExpiry bool
	Owned      bool
}

// ContainerPage handles GET /inventory/containers/{id}.
func (s *Server) ContainerPage(w http.ResponseWriter, r *http.Request) {
	user := GetWebUser(r.Context())

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	c, err := s.Containers.Show(r.Context(), id)
	if errors.Is(err, inventory.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("failed to load container", "error", err)
		http.Error(w, "failed to load container", http.StatusInternalServerError)
		return
	}

	products, err := s.Products.List(r.Context())
	if err != nil {
		slog.Error("failed to list products", "error", err)
		http.Error(w, "failed to load products", http.StatusInternalServerError)
		return
	}
	names := make(map[int64]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	s.Templates.Render(w, "container.html", containerPage{
		PageData: PageData{
			Title:   "Container " + c.Row + strconv.Itoa(c.Shelf),
			User:    user,
			Success: r.URL.Query().Get("success"),
		},
		Container:  c,
		Names:      names,
		NearExpiry: viewmodel.NearExpiry(c.Expires, s.today()),
		Owned:      c.UserID == user.ID,
	})
}

type containerEditPage struct {
	PageData
	Container *model.Container
	Products  []model.Product
	Form      containerForm
	Lines     []contentLine
}

// contentLine is one product/concentration pair of the edit form.
type contentLine struct {
	ProductID     string
	Concentration string
}

// ContainerEditPage handles GET /inventory/containers/{id}/edit.
func (s *Server) ContainerEditPage(w http.ResponseWriter, r *http.Request) {
	c, ok := s.ownedContainer(w, r)
	if !ok {
		return
	}

	lines := make([]contentLine, 0, len(c.Contents))
	for _, content := range c.Contents {
		lines = append(lines, contentLine{
			ProductID:     strconv.FormatInt(content.ProductID, 10),
			Concentration: strconv.FormatFloat(content.Concentration, 'f', -1, 64),
		})
	}

	s.renderContainerEdit(w, r, http.StatusOK, nil, c, containerForm{
		Shelf:   strconv.Itoa(c.Shelf),
		Row:     c.Row,
		Expires: c.Expires.String(),
	}, lines)
}

// ContainerEditSubmit handles POST /inventory/containers/{id}/edit. The
// submitted lines replace the stored contents.
func (s *Server) ContainerEditSubmit(w http.ResponseWriter, r *http.Request) {
	user := GetWebUser(r.Context())

	c, ok := s.ownedContainer(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := containerForm{
		Shelf:   r.PostFormValue("shelf"),
		Row:     r.PostFormValue("row"),
		Expires: r.PostFormValue("expires"),
	}
	p := &inventory.ContainerPayload{
		Shelf:   form.Shelf,
		Row:     form.Row,
		Expires: form.Expires,
	}
	contents := formContents(r.PostForm["product_id"], r.PostForm["concentration"])
	p.SetContents(contents)

	if _, err := s.Containers.Update(r.Context(), user, c.ID, p); err != nil {
		var verr *inventory.ValidationError
		switch {
		case errors.Is(err, inventory.ErrNotFound):
			http.NotFound(w, r)
		case errors.As(err, &verr):
			lines := make([]contentLine, 0, len(contents))
			for _, cp := range contents {
				lines = append(lines, contentLine{
					ProductID:     fmt.Sprint(cp.ProductID),
					Concentration: fmt.Sprint(cp.Concentration),
				})
			}
			s.renderContainerEdit(w, r, http.StatusUnprocessableEntity, verr.Errors, c, form, lines)
		default:
			slog.Error("failed to update container", "error", err)
			http.Error(w, "failed to update container", http.StatusInternalServerError)
		}
		return
	}

	slog.Info("container edited from web", "id", c.ID, "user", user.Username)
	http.Redirect(w, r, fmt.Sprintf("/inventory/containers/%d?success=Container+updated", c.ID), http.StatusSeeOther)
}

// ownedContainer loads the container named in the path if it belongs to the
// session user. Other users' containers answer 404.
func (s *Server) ownedContainer(w http.ResponseWriter, r *http.Request) (*model.Container, bool) {
	user := GetWebUser(r.Context())

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return nil, false
	}

	c, err := s.Containers.Show(r.Context(), id)
	if errors.Is(err, inventory.ErrNotFound) || (err == nil && c.UserID != user.ID) {
		http.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		slog.Error("failed to load container", "error", err)
		http.Error(w, "failed to load container", http.StatusInternalServerError)
		return nil, false
	}
	return c, true
}

func (s *Server) renderContainerEdit(w http.ResponseWriter, r *http.Request, status int, errs []string, c *model.Container, form containerForm, lines []contentLine) {
	products, err := s.Products.List(r.Context())
	if err != nil {
		slog.Error("failed to list products", "error", err)
		http.Error(w, "failed to load products", http.StatusInternalServerError)
		return
	}

	// Room for at least one more product.
	for len(lines) < FormContentRows || lines[len(lines)-1] != (contentLine{}) {
		lines = append(lines, contentLine{})
	}

	s.Templates.RenderStatus(w, status, "container_edit.html", containerEditPage{
		PageData: PageData{
			Title:  "Edit container " + c.Row + strconv.Itoa(c.Shelf),
			User:   GetWebUser(r.Context()),
			Errors: errs,
		},
		Container: c,
		Products:  viewmodel.SortProducts(products),
		Form:      form,
		Lines:     lines,
	})
}

// ContainerDeleteSubmit handles POST /inventory/containers/{id}/delete.
func (s *Server) ContainerDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	user := GetWebUser(r.Context())

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if _, err := s.Containers.Destroy(r.Context(), user, id); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("failed to delete container", "error", err)
		http.Error(w, "failed to delete container", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/?success=Container+removed", http.StatusSeeOther)
}

func (s *Server) renderInventory(w http.ResponseWriter, r *http.Request, status int, data *PageData, productID int64, form containerForm) {
	containers, err := s.Containers.ListOwned(r.Context(), data.User)
	if err != nil {
		slog.Error("failed to list containers", "error", err)
		http.Error(w, "failed to load inventory", http.StatusInternalServerError)
		return
	}

	products, err := s.Products.List(r.Context())
	if err != nil {
		slog.Error("failed to list products", "error", err)
		http.Error(w, "failed to load inventory", http.StatusInternalServerError)
		return
	}

	inv := viewmodel.Build(containers, products, productID, s.today())
	if form.Expires == "" {
		form.Expires = inv.DefaultExpiry.String()
	}

	s.Templates.RenderStatus(w, status, "inventory.html", inventoryPage{
		PageData:  *data,
		Inventory: inv,
		Form:      form,
	})
}

func (s *Server) today() model.Date {
	return viewmodel.Today(s.Clock())
}

// formContents pairs the repeated product and concentration fields of the
// add form. Lines left entirely blank are skipped.
func formContents(productIDs, concentrations []string) []inventory.ContentPayload {
	contents := make([]inventory.ContentPayload, 0, len(productIDs))
	for i, pid := range productIDs {
		var conc string
		if i < len(concentrations) {
			conc = concentrations[i]
		}
		if pid == "" && conc == "" {
			continue
		}
		contents = append(contents, inventory.ContentPayload{
			ProductID:     pid,
			Concentration: conc,
		})
	}
	return contents
}

// productFilter reads the optional product_id query parameter. An empty
// value means no filter.
func productFilter(r *http.Request) (int64, error) {
	v := r.URL.Query().Get("product_id")
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return 0, errors.New("invalid product_id")
	}
	return id, nil
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
