package execution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codecollab/errors"

	"github.com/stretchr/testify/require"
)

func TestJudge0Client_CreateSubmission(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal(http.MethodPost, r.Method)
		req.Equal("/submissions", r.URL.Path)
		req.Equal("judge0-ce.p.rapidapi.com", r.Header.Get("X-RapidAPI-Host"))
		req.Equal("secret", r.Header.Get("X-RapidAPI-Key"))

		var body createRequest
		req.NoError(json.NewDecoder(r.Body).Decode(&body))
		req.Equal(`print("1")`, body.SourceCode)
		req.Equal(LanguagePython, body.LanguageID)
		req.False(body.Base64Encoded)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"abc-123"}`))
	}))
	defer srv.Close()

	client := NewJudge0Client(Judge0Config{
		BaseURL: srv.URL,
		APIHost: "judge0-ce.p.rapidapi.com",
		APIKey:  "secret",
	})

	token, err := client.CreateSubmission(context.Background(), `print("1")`, LanguagePython, "")
	req.NoError(err)
	req.Equal("abc-123", token)
}

func TestJudge0Client_CreateSubmissionRejected(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"source_code can't be blank"}`))
	}))
	defer srv.Close()

	client := NewJudge0Client(Judge0Config{BaseURL: srv.URL})

	_, err := client.CreateSubmission(context.Background(), "", LanguagePython, "")
	req.ErrorIs(err, errors.ErrSubmissionRejected)
	req.Contains(err.Error(), "422")
}

func TestJudge0Client_GetSubmission(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/submissions/abc-123", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"status": {"id": 3, "description": "Accepted"},
			"stdout": "1\n",
			"stderr": "",
			"compile_output": "",
			"message": ""
		}`))
	}))
	defer srv.Close()

	client := NewJudge0Client(Judge0Config{BaseURL: srv.URL})

	snap, err := client.GetSubmission(context.Background(), "abc-123")
	req.NoError(err)
	req.Equal(3, snap.StatusID)
	req.Equal("Accepted", snap.StatusDescription)
	req.Equal("1\n", snap.Stdout)
	req.True(snap.Terminal())
}

func TestJudge0Client_GetSubmissionConnectivity(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewJudge0Client(Judge0Config{BaseURL: srv.URL})

	_, err := client.GetSubmission(context.Background(), "abc-123")
	req.ErrorIs(err, errors.ErrConnectivity)
}
