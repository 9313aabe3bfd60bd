package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/shelfkeeper/internal/auth"
	"github.com/erazemk/shelfkeeper/internal/db"
	"github.com/erazemk/shelfkeeper/internal/inventory"
	"github.com/erazemk/shelfkeeper/internal/model"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(Deps{
		DB:         database,
		Sessions:   auth.NewSessions([]byte("0123456789abcdef0123456789abcdef"), 0, false),
		JWTSecret:  testJWTSecret,
		Containers: &inventory.Containers{DB: database},
		Products:   &inventory.Products{DB: database},
		Clock:      func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) },
	})
	server := httptest.NewServer(LoggingMiddleware(router))
	t.Cleanup(server.Close)
	return server
}

// newClient returns a client that keeps session cookies.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func do(t *testing.T, client *http.Client, method, url string, body any, header ...string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

// signup creates a user and returns a client logged in as them.
func signup(t *testing.T, server *httptest.Server, username string) *http.Client {
	t.Helper()
	client := newClient(t)
	resp, body := do(t, client, "POST", server.URL+"/signup", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	return client
}

func createProduct(t *testing.T, server *httptest.Server, name string) model.Product {
	t.Helper()
	resp, body := do(t, http.DefaultClient, "POST", server.URL+"/products", map[string]string{
		"name":    name,
		"epa_reg": "5813-100",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var p model.Product
	require.NoError(t, json.Unmarshal(body, &p))
	return p
}

func createContainer(t *testing.T, server *httptest.Server, client *http.Client, productID int64, expires string) model.Container {
	t.Helper()
	resp, body := do(t, client, "POST", server.URL+"/containers", map[string]any{
		"shelf":   2,
		"row":     "B",
		"expires": expires,
		"contents_attributes": []map[string]any{
			{"product_id": productID, "concentration": 12.5},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var c model.Container
	require.NoError(t, json.Unmarshal(body, &c))
	return c
}

func TestSignupLoginLogout(t *testing.T) {
	server := setupTestServer(t)
	client := signup(t, server, "alice")

	resp, body := do(t, client, "GET", server.URL+"/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"username":"alice"`)
	assert.NotContains(t, string(body), "password")

	resp, _ = do(t, client, "DELETE", server.URL+"/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, client, "GET", server.URL+"/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = do(t, newClient(t), "POST", server.URL+"/signup", map[string]string{
		"username": "alice",
		"password": "short",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "password must be at least 8 characters")
	assert.Contains(t, string(body), "username has already been taken")
}

func TestLoginEndpoint(t *testing.T) {
	server := setupTestServer(t)
	signup(t, server, "alice")

	resp, _ := do(t, newClient(t), "POST", server.URL+"/login", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := do(t, http.DefaultClient, "POST", server.URL+"/login", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		User  model.User `json:"user"`
		Token string     `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &login))
	assert.Equal(t, "alice", login.User.Username)
	require.NotEmpty(t, login.Token)

	bearer := []string{"Authorization", "Bearer " + login.Token}
	resp, _ = do(t, http.DefaultClient, "GET", server.URL+"/me", nil, bearer...)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.DefaultClient, "DELETE", server.URL+"/logout", nil, bearer...)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.DefaultClient, "GET", server.URL+"/me", nil, bearer...)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "revoked token is rejected")
}

func TestContainerRoundTrip(t *testing.T) {
	server := setupTestServer(t)
	alice := signup(t, server, "alice")
	product := createProduct(t, server, "Bleach")

	created := createContainer(t, server, alice, product.ID, "2025-06-30T00:00:00.000Z")
	assert.Equal(t, "2025-06-30", created.Expires.String())

	resp, body := do(t, http.DefaultClient, "GET", fmt.Sprintf("%s/containers/%d", server.URL, created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"expires":"2025-06-30"`)

	var got model.Container
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 2, got.Shelf)
	assert.Equal(t, "B", got.Row)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, product.ID, got.Contents[0].ProductID)
	assert.Equal(t, 12.5, got.Contents[0].Concentration)

	resp, body = do(t, http.DefaultClient, "GET", server.URL+"/containers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []model.Container
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Len(t, all, 1)
}

func TestCreateContainerWithoutSession(t *testing.T) {
	server := setupTestServer(t)
	product := createProduct(t, server, "Bleach")

	resp, body := do(t, http.DefaultClient, "POST", server.URL+"/containers", map[string]any{
		"shelf": 1, "row": "A", "expires": "2030-01-01",
		"contents_attributes": []map[string]any{{"product_id": product.ID, "concentration": 1}},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, body)
}

func TestCreateContainerValidation(t *testing.T) {
	server := setupTestServer(t)
	alice := signup(t, server, "alice")

	resp, body := do(t, alice, "POST", server.URL+"/containers", map[string]any{
		"container": map[string]any{
			"shelf": "1", "row": "A", "expires": "2030-01-01",
			"contents_attributes": []any{},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.JSONEq(t, `{"errors":["contents must contain at least one entry"]}`, string(body))

	resp, _ = do(t, alice, "POST", server.URL+"/containers", `{"shelf": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateContainer(t *testing.T) {
	server := setupTestServer(t)
	alice := signup(t, server, "alice")
	bob := signup(t, server, "bob")
	product := createProduct(t, server, "Bleach")
	c := createContainer(t, server, alice, product.ID, "2030-01-01")
	url := fmt.Sprintf("%s/containers/%d", server.URL, c.ID)

	resp, body := do(t, alice, "PATCH", url, map[string]any{"row": "D", "expires": "2031-02-03"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	var updated model.Container
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "D", updated.Row)
	assert.Equal(t, "2031-02-03", updated.Expires.String())
	assert.Equal(t, 2, updated.Shelf)

	resp, body = do(t, alice, "PUT", url, map[string]any{"shelf": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "shelf must be greater than 0")

	resp, body = do(t, bob, "PATCH", url, map[string]any{"shelf": 9})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, body)
}

func TestNonOwnerDeleteLeavesContainer(t *testing.T) {
	server := setupTestServer(t)
	alice := signup(t, server, "alice")
	bob := signup(t, server, "bob")
	product := createProduct(t, server, "Bleach")
	c := createContainer(t, server, alice, product.ID, "2030-01-01")
	url := fmt.Sprintf("%s/containers/%d", server.URL, c.ID)

	resp, body := do(t, bob, "DELETE", url, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, body)

	resp, _ = do(t, http.DefaultClient, "GET", url, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "record is unchanged after a non-owner delete")

	resp, _ = do(t, alice, "DELETE", url, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.DefaultClient, "GET", url, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMalformedIDIsNotFound(t *testing.T) {
	server := setupTestServer(t)

	resp, body := do(t, http.DefaultClient, "GET", server.URL+"/containers/abc", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, body)

	resp, _ = do(t, http.DefaultClient, "DELETE", server.URL+"/products/0", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProductsAPIFlow(t *testing.T) {
	server := setupTestServer(t)
	product := createProduct(t, server, "Quat")
	createProduct(t, server, "Alcohol")
	url := fmt.Sprintf("%s/products/%d", server.URL, product.ID)

	resp, body := do(t, http.DefaultClient, "GET", server.URL+"/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var products []model.Product
	require.NoError(t, json.Unmarshal(body, &products))
	require.Len(t, products, 2)
	assert.Equal(t, "Alcohol", products[0].Name)

	resp, body = do(t, http.DefaultClient, "PATCH", url, map[string]any{"product": map[string]string{"epa_reg": "1-2"}})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"epa_reg":"1-2"`)
	assert.Contains(t, string(body), `"name":"Quat"`)

	resp, body = do(t, http.DefaultClient, "POST", server.URL+"/products", map[string]string{"name": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.JSONEq(t, `{"errors":["name can't be blank","epa_reg can't be blank"]}`, string(body))

	resp, _ = do(t, http.DefaultClient, "DELETE", url, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.DefaultClient, "DELETE", url, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.DefaultClient, "PUT", url, map[string]string{"name": "Gone"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProductLabelAPI(t *testing.T) {
	server := setupTestServer(t)
	product := createProduct(t, server, "Bleach")
	url := fmt.Sprintf("%s/products/%d/label", server.URL, product.ID)

	resp, _ := do(t, http.DefaultClient, "GET", url, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))))

	req, err := http.NewRequest("PUT", url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "image/png")
	putResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	putResp.Body.Close()
	assert.Equal(t, http.StatusAccepted, putResp.StatusCode)

	resp, body := do(t, http.DefaultClient, "GET", url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, body)

	resp, body = do(t, http.DefaultClient, "PUT", url, "definitely not an image")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "label is not a valid image")
}

func TestInventoryEndpoint(t *testing.T) {
	server := setupTestServer(t)
	alice := signup(t, server, "alice")
	bob := signup(t, server, "bob")
	bleach := createProduct(t, server, "Bleach")
	quat := createProduct(t, server, "Quat")

	createContainer(t, server, alice, bleach.ID, "2024-02-15")
	createContainer(t, server, alice, quat.ID, "2024-06-01")
	createContainer(t, server, bob, bleach.ID, "2024-02-15")

	resp, _ := do(t, http.DefaultClient, "GET", server.URL+"/inventory", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := do(t, alice, "GET", server.URL+"/inventory", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inv struct {
		Containers []struct {
			ID         int64 `json:"id"`
			NearExpiry bool  `json:"near_expiry"`
		} `json:"containers"`
		Total         int    `json:"total"`
		DefaultExpiry string `json:"default_expiry"`
	}
	require.NoError(t, json.Unmarshal(body, &inv))
	assert.Equal(t, 2, inv.Total, "only the session user's containers")
	assert.Equal(t, "2026-01-01", inv.DefaultExpiry)
	require.Len(t, inv.Containers, 2)
	assert.True(t, inv.Containers[0].NearExpiry)
	assert.False(t, inv.Containers[1].NearExpiry)

	resp, body = do(t, alice, "GET", fmt.Sprintf("%s/inventory?product_id=%d", server.URL, quat.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &inv))
	assert.Len(t, inv.Containers, 1)

	resp, _ = do(t, alice, "GET", server.URL+"/inventory?product_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestContainersCSV(t *testing.T) {
	server := setupTestServer(t)
	alice := signup(t, server, "alice")
	bleach := createProduct(t, server, "Bleach")
	createContainer(t, server, alice, bleach.ID, "2024-02-15")

	resp, _ := do(t, http.DefaultClient, "GET", server.URL+"/containers.csv", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := do(t, alice, "GET", server.URL+"/containers.csv", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv"))
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[1], "2,B,2024-02-15,true,Bleach (12.5%)"), lines[1])
}

func TestRequestIDHeader(t *testing.T) {
	server := setupTestServer(t)

	resp, _ := do(t, http.DefaultClient, "GET", server.URL+"/products", nil)
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36)

	const id = "0b6f8a4e-2a55-4b8e-9a36-7d1c0f4a8f11"
	resp, _ = do(t, http.DefaultClient, "GET", server.URL+"/products", nil, RequestIDHeader, id)
	assert.Equal(t, id, resp.Header.Get(RequestIDHeader))
}
