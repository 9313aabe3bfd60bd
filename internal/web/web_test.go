package web

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/shelfkeeper/internal/auth"
	"github.com/erazemk/shelfkeeper/internal/db"
	"github.com/erazemk/shelfkeeper/internal/inventory"
	"github.com/erazemk/shelfkeeper/internal/model"
	"github.com/erazemk/shelfkeeper/internal/store"
)

const testPassword = "correct horse"

type testEnv struct {
	server     *httptest.Server
	containers *inventory.Containers
	products   *inventory.Products
}

func setupTestServer(t *testing.T, usernames ...string) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	for _, name := range usernames {
		_, err := store.CreateUser(context.Background(), database, name, string(hash))
		require.NoError(t, err)
	}

	templates, err := LoadTemplates()
	require.NoError(t, err)

	s := &Server{
		DB:         database,
		Templates:  templates,
		Sessions:   auth.NewSessions([]byte("0123456789abcdef0123456789abcdef"), 0, false),
		Containers: &inventory.Containers{DB: database},
		Products:   &inventory.Products{DB: database},
		Clock:      func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) },
	}

	mux := http.NewServeMux()
	require.NoError(t, Register(mux, s))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{server: server, containers: s.Containers, products: s.Products}
}

// newClient returns a client that keeps cookies and does not follow redirects.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, client *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func post(t *testing.T, client *http.Client, u string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := client.PostForm(u, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func signin(t *testing.T, env *testEnv, username string) *http.Client {
	t.Helper()
	client := newClient(t)
	resp, _ := post(t, client, env.server.URL+"/signin", url.Values{
		"username": {username},
		"password": {testPassword},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
	return client
}

func TestSignin(t *testing.T) {
	env := setupTestServer(t, "alice")

	t.Run("redirects anonymous visitors", func(t *testing.T) {
		resp, _ := get(t, newClient(t), env.server.URL+"/")
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/signin", resp.Header.Get("Location"))
	})

	t.Run("renders form", func(t *testing.T) {
		resp, body := get(t, newClient(t), env.server.URL+"/signin")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `action="/signin"`)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp, body := post(t, newClient(t), env.server.URL+"/signin", url.Values{
			"username": {"alice"},
			"password": {"nope nope"},
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, body, "Wrong username or password.")
	})

	t.Run("blank fields", func(t *testing.T) {
		resp, body := post(t, newClient(t), env.server.URL+"/signin", url.Values{})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Contains(t, body, "Enter your username and password.")
	})

	t.Run("signin and signout", func(t *testing.T) {
		client := signin(t, env, "alice")

		resp, body := get(t, client, env.server.URL+"/")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "alice")
		assert.Contains(t, body, "No containers yet.")

		resp, _ = post(t, client, env.server.URL+"/signout", nil)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

		resp, _ = get(t, client, env.server.URL+"/")
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	})
}

func TestInventoryPage(t *testing.T) {
	env := setupTestServer(t, "alice", "bob")
	alice := signin(t, env, "alice")

	resp, _ := post(t, alice, env.server.URL+"/inventory/products", url.Values{
		"name":    {"Bleach"},
		"epa_reg": {"5813-100"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	products, err := env.products.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	bleach := products[0]

	t.Run("add container", func(t *testing.T) {
		resp, _ := post(t, alice, env.server.URL+"/inventory/containers", url.Values{
			"shelf":         {"2"},
			"row":           {"B"},
			"expires":       {"2024-02-01"},
			"product_id":    {itoa(bleach.ID), "", ""},
			"concentration": {"12.5", "", ""},
		})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		resp, body := get(t, alice, env.server.URL+"/")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "B2")
		assert.Contains(t, body, "12.5%")
		assert.Contains(t, body, `class="near-expiry"`)
		assert.Contains(t, body, "Showing 1 of 1 containers.")
	})

	t.Run("add form defaults expiry", func(t *testing.T) {
		_, body := get(t, alice, env.server.URL+"/")
		assert.Contains(t, body, `value="2026-01-01"`)
	})

	t.Run("rejects container without contents", func(t *testing.T) {
		resp, body := post(t, alice, env.server.URL+"/inventory/containers", url.Values{
			"shelf":         {"1"},
			"row":           {"A"},
			"expires":       {"2025-01-01"},
			"product_id":    {"", "", ""},
			"concentration": {"", "", ""},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Contains(t, body, "must contain at least one entry")
		assert.Contains(t, body, `value="2025-01-01"`)
	})

	t.Run("filters by product", func(t *testing.T) {
		_, body := get(t, alice, env.server.URL+"/?product_id="+itoa(bleach.ID+100))
		assert.Contains(t, body, "Showing 0 of 1 containers.")

		resp, _ := get(t, alice, env.server.URL+"/?product_id=abc")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("other users see only their own", func(t *testing.T) {
		bob := signin(t, env, "bob")
		_, body := get(t, bob, env.server.URL+"/")
		assert.Contains(t, body, "No containers yet.")
	})
}

func TestContainerPages(t *testing.T) {
	env := setupTestServer(t, "alice", "bob")
	ctx := context.Background()

	alice, err := store.GetUserByUsername(ctx, env.containers.DB, "alice")
	require.NoError(t, err)

	name, epaReg := "Bleach", "5813-100"
	product, err := env.products.Create(ctx, &inventory.ProductPayload{Name: &name, EPAReg: &epaReg})
	require.NoError(t, err)

	p := &inventory.ContainerPayload{Shelf: 3, Row: "c", Expires: "2025-06-01"}
	p.SetContents([]inventory.ContentPayload{{ProductID: product.ID, Concentration: 5}})
	c, err := env.containers.Create(ctx, alice, p)
	require.NoError(t, err)

	containerURL := env.server.URL + "/inventory/containers/" + itoa(c.ID)

	t.Run("detail", func(t *testing.T) {
		resp, body := get(t, signin(t, env, "alice"), containerURL)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Container C3")
		assert.Contains(t, body, "Bleach")
		assert.Contains(t, body, "Remove container")
		assert.Contains(t, body, `href="/inventory/containers/`+itoa(c.ID)+`/edit"`)
	})

	t.Run("detail of someone else's container", func(t *testing.T) {
		resp, body := get(t, signin(t, env, "bob"), containerURL)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotContains(t, body, "Remove container")
		assert.NotContains(t, body, "/edit")
	})

	t.Run("missing", func(t *testing.T) {
		resp, _ := get(t, signin(t, env, "alice"), env.server.URL+"/inventory/containers/999")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete is scoped to owner", func(t *testing.T) {
		resp, _ := post(t, signin(t, env, "bob"), containerURL+"/delete", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, _ = post(t, signin(t, env, "alice"), containerURL+"/delete", nil)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

		_, err := env.containers.Show(ctx, c.ID)
		assert.ErrorIs(t, err, inventory.ErrNotFound)
	})
}

func TestContainerEdit(t *testing.T) {
	env := setupTestServer(t, "alice", "bob")
	ctx := context.Background()

	alice, err := store.GetUserByUsername(ctx, env.containers.DB, "alice")
	require.NoError(t, err)

	var products []*model.Product
	for _, name := range []string{"Bleach", "Quat"} {
		epaReg := "1-1"
		p, err := env.products.Create(ctx, &inventory.ProductPayload{Name: &name, EPAReg: &epaReg})
		require.NoError(t, err)
		products = append(products, p)
	}
	bleach, quat := products[0], products[1]

	p := &inventory.ContainerPayload{Shelf: 3, Row: "C", Expires: "2025-06-01"}
	p.SetContents([]inventory.ContentPayload{{ProductID: bleach.ID, Concentration: 5}})
	c, err := env.containers.Create(ctx, alice, p)
	require.NoError(t, err)

	editURL := env.server.URL + "/inventory/containers/" + itoa(c.ID) + "/edit"
	aliceClient := signin(t, env, "alice")
	bobClient := signin(t, env, "bob")

	t.Run("form is prefilled", func(t *testing.T) {
		resp, body := get(t, aliceClient, editURL)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `<option value="3" selected>`)
		assert.Contains(t, body, `<option value="C" selected>`)
		assert.Contains(t, body, `value="2025-06-01"`)
		assert.Contains(t, body, `<option value="`+itoa(bleach.ID)+`" selected>Bleach</option>`)
		assert.Contains(t, body, `value="5"`)
	})

	t.Run("other users cannot edit", func(t *testing.T) {
		resp, _ := get(t, bobClient, editURL)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, _ = post(t, bobClient, editURL, url.Values{
			"shelf":         {"9"},
			"row":           {"A"},
			"expires":       {"2030-01-01"},
			"product_id":    {itoa(quat.ID)},
			"concentration": {"1"},
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		got, err := env.containers.Show(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Shelf)
	})

	t.Run("rejects clearing all contents", func(t *testing.T) {
		resp, body := post(t, aliceClient, editURL, url.Values{
			"shelf":         {"3"},
			"row":           {"C"},
			"expires":       {"2025-06-01"},
			"product_id":    {"", ""},
			"concentration": {"", ""},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Contains(t, body, "must contain at least one entry")

		got, err := env.containers.Show(ctx, c.ID)
		require.NoError(t, err)
		assert.Len(t, got.Contents, 1)
	})

	t.Run("saves changes", func(t *testing.T) {
		resp, _ := post(t, aliceClient, editURL, url.Values{
			"shelf":         {"4"},
			"row":           {"D"},
			"expires":       {"2026-03-01"},
			"product_id":    {itoa(quat.ID), ""},
			"concentration": {"7.5", ""},
		})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/inventory/containers/"+itoa(c.ID)+"?success=Container+updated", resp.Header.Get("Location"))

		got, err := env.containers.Show(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, got.Shelf)
		assert.Equal(t, "D", got.Row)
		assert.Equal(t, "2026-03-01", got.Expires.String())
		require.Len(t, got.Contents, 1)
		assert.Equal(t, quat.ID, got.Contents[0].ProductID)
		assert.Equal(t, 7.5, got.Contents[0].Concentration)

		_, body := get(t, aliceClient, env.server.URL+resp.Header.Get("Location"))
		assert.Contains(t, body, "Container updated")
		assert.Contains(t, body, "Container D4")
	})
}

func TestProductsPage(t *testing.T) {
	env := setupTestServer(t, "alice")
	client := signin(t, env, "alice")

	t.Run("validation errors", func(t *testing.T) {
		resp, body := post(t, client, env.server.URL+"/inventory/products", url.Values{
			"name":    {""},
			"epa_reg": {"1-2"},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Contains(t, body, "name can&#39;t be blank")
		assert.Contains(t, body, `value="1-2"`)
	})

	t.Run("sorted list", func(t *testing.T) {
		for _, name := range []string{"zinc", "Ammonia", "bleach"} {
			resp, _ := post(t, client, env.server.URL+"/inventory/products", url.Values{
				"name":    {name},
				"epa_reg": {"1-1"},
			})
			require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		}

		_, body := get(t, client, env.server.URL+"/inventory/products")
		a := strings.Index(body, "Ammonia")
		b := strings.Index(body, "bleach")
		z := strings.Index(body, "zinc")
		assert.True(t, a < b && b < z, "products out of order")
	})

	t.Run("label without file", func(t *testing.T) {
		products, err := env.products.List(context.Background())
		require.NoError(t, err)
		resp, body := post(t, client, env.server.URL+"/inventory/products/"+itoa(products[0].ID)+"/label", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Contains(t, body, "label can&#39;t be blank")
	})

	t.Run("missing label", func(t *testing.T) {
		resp, _ := get(t, client, env.server.URL+"/inventory/products/999/label")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete", func(t *testing.T) {
		products, err := env.products.List(context.Background())
		require.NoError(t, err)
		resp, _ := post(t, client, env.server.URL+"/inventory/products/"+itoa(products[0].ID)+"/delete", nil)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

		resp, _ = post(t, client, env.server.URL+"/inventory/products/999/delete", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestFormContents(t *testing.T) {
	got := formContents([]string{"1", "", "3", ""}, []string{"10", "", "", "5"})
	assert.Equal(t, []inventory.ContentPayload{
		{ProductID: "1", Concentration: "10"},
		{ProductID: "3", Concentration: ""},
		{ProductID: "", Concentration: "5"},
	}, got)

	assert.Empty(t, formContents(nil, nil))
}

func TestTemplatesLoad(t *testing.T) {
	ts, err := LoadTemplates()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	ts.Render(rec, "signin.html", &PageData{Title: "Sign in", User: &model.User{Username: "x"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in · Shelfkeeper")

	rec = httptest.NewRecorder()
	ts.Render(rec, "missing.html", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
