//go:build integration

package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests drive a running bitebook stack (docker compose or similar)
// over HTTP. They are skipped when the API is not reachable.

var client = &http.Client{Timeout: 10 * time.Second}

func baseURL() string {
	if u := os.Getenv("BITEBOOK_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://localhost:8080"
}

func skipIfNotRunning(t *testing.T) {
	t.Helper()
	resp, err := (&http.Client{Timeout: 2 * time.Second}).Get(baseURL() + "/health/live")
	if err != nil {
		t.Skipf("bitebook not reachable at %s: %v", baseURL(), err)
	}
	resp.Body.Close()
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano()%1_000_000_000)
}

// call sends a JSON request and decodes the response envelope.
func call(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, baseURL()+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	require.NoError(t, err, "%s %s", method, path)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp.StatusCode, out
}

type account struct {
	id    string
	token string
}

func signUp(t *testing.T, name string, private bool) account {
	t.Helper()
	status, body := call(t, http.MethodPost, "/users/signUp", map[string]any{
		"username":   name,
		"email":      name + "@test.example.com",
		"password":   "Passw0rd-e2e",
		"is_private": private,
	}, "")
	require.Equal(t, http.StatusCreated, status, body)

	data := body["data"].(map[string]any)
	return account{
		id:    data["user"].(map[string]any)["id"].(string),
		token: data["access_token"].(string),
	}
}

func TestHealthReady(t *testing.T) {
	skipIfNotRunning(t)
	status, body := call(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, status, body)
}

// TestPrivateFollowFlow walks the follow-request lifecycle and the
// visibility rules it unlocks.
func TestPrivateFollowFlow(t *testing.T) {
	skipIfNotRunning(t)

	alice := signUp(t, uniqueName("alice"), false)
	bob := signUp(t, uniqueName("bob"), true)
	carol := signUp(t, uniqueName("carol"), true)

	t.Log("alice requests to follow bob")
	status, body := call(t, http.MethodPut, "/users/follow/"+bob.id, nil, alice.token)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "requested", body["data"].(map[string]any)["status"])

	status, body = call(t, http.MethodGet, "/users/requests", nil, bob.token)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body["data"], alice.id)

	t.Log("bob accepts")
	status, body = call(t, http.MethodPut, "/users/acceptFollow/"+alice.id, nil, bob.token)
	require.Equal(t, http.StatusOK, status, body)

	status, body = call(t, http.MethodPut, "/users/follow/"+bob.id, nil, alice.token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ALREADY_FOLLOWING", body["error"].(map[string]any)["code"])

	t.Log("bob posts about a new restaurant")
	status, body = call(t, http.MethodPost, "/restaurants/create", map[string]any{
		"name":     "Ramen Ya",
		"location": "Kadikoy",
		"type":     "japanese",
		"hours":    map[string]any{"monday": map[string]any{"open": "11:00", "close": "22:00"}},
	}, bob.token)
	require.Equal(t, http.StatusCreated, status, body)
	restaurantID := body["data"].(map[string]any)["id"].(string)

	status, body = call(t, http.MethodPost, "/posts/create", map[string]any{
		"image":         "https://img.test.example.com/ramen.jpg",
		"description":   "rich broth",
		"restaurant_id": restaurantID,
	}, bob.token)
	require.Equal(t, http.StatusCreated, status, body)
	postID := body["data"].(map[string]any)["id"].(string)

	t.Log("alice, a follower, sees and likes it; carol cannot")
	status, _ = call(t, http.MethodGet, "/users/"+bob.id+"/posts", nil, alice.token)
	assert.Equal(t, http.StatusOK, status)

	status, body = call(t, http.MethodPut, "/posts/"+postID+"/like", nil, alice.token)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 1, body["data"].(map[string]any)["likes"])

	status, _ = call(t, http.MethodGet, "/users/"+bob.id+"/posts", nil, carol.token)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = call(t, http.MethodPut, "/posts/"+postID+"/like", nil, carol.token)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, http.MethodGet, "/posts/feed", nil, alice.token)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 1, body["total_count"])

	t.Log("reviews are unique per user")
	status, _ = call(t, http.MethodPost, "/restaurants/"+restaurantID+"/review", map[string]any{"rating": 4}, alice.token)
	require.Equal(t, http.StatusCreated, status)
	status, body = call(t, http.MethodPost, "/restaurants/"+restaurantID+"/review", map[string]any{"rating": 5}, alice.token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "DUPLICATE_REVIEW", body["error"].(map[string]any)["code"])

	status, body = call(t, http.MethodGet, "/restaurants/"+restaurantID, nil, carol.token)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 4, body["data"].(map[string]any)["average_rating"])

	t.Cleanup(func() {
		for _, a := range []account{alice, bob, carol} {
			call(t, http.MethodDelete, "/users/delete/"+a.id, nil, a.token)
		}
	})
}
