package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/finsight/internal/finance"
)

var testIdentity = Identity{UserID: "user_123", Email: "miguel@example.com"}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/login/login", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"email":"miguel@example.com","clerk_id":"user_123"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"exists":true}`)
	}))
	defer srv.Close()

	exists, err := NewClient(srv.URL).Login(context.Background(), testIdentity)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLogin_RequiresIdentity(t *testing.T) {
	_, err := NewClient("http://unused").Login(context.Background(), Identity{})
	assert.Error(t, err)
}

func TestFetchContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/context", r.URL.Path)
		assert.Equal(t, "user_123", r.URL.Query().Get("clerk_id"))

		io.WriteString(w, `{
			"transactions": [{"id":"t1","date":"2025-09-12","description":"Coffee","amount":-6.5,"category":"Food & Drink"}],
			"goals": [{"goal_name":"Vacation","target_amount":1000,"current_progress":250}],
			"policies": [{"policy_id":"p1","description":"Coffee Budget","limit_amount":50,"current_spending":35.5,"timeframe":"monthly","target_category":"Food & Drink"}]
		}`)
	}))
	defer srv.Close()

	fin, err := NewClient(srv.URL).FetchContext(context.Background(), testIdentity)
	require.NoError(t, err)

	require.Len(t, fin.Transactions, 1)
	assert.True(t, fin.Transactions[0].Amount.Equal(decimal.NewFromFloat(-6.5)))
	require.Len(t, fin.Policies, 1)
	assert.Equal(t, 71, fin.Policies[0].Progress())
	require.Len(t, fin.Goals, 1)
	assert.Equal(t, "Vacation", fin.Goals[0].GoalName)
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/upload", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "user_123", r.FormValue("clerk_id"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "statement.csv", hdr.Filename)

		content, _ := io.ReadAll(f)
		assert.Contains(t, string(content), "Daily Grind Coffee")

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"status":"success","imported_count":2}`)
	}))
	defer srv.Close()

	statement := "Date,Description,Amount\n2025-09-12,Daily Grind Coffee,-6.50\n2025-09-08,Salary,3500\n"
	res, err := NewClient(srv.URL).Upload(context.Background(), testIdentity, "statement.csv", strings.NewReader(statement))
	require.NoError(t, err)
	assert.Equal(t, 2, res.ImportedCount)
	assert.Equal(t, "success", res.Status)
}

func TestAddTransaction_ReturnsReplacementContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/transactions", r.URL.Path)
		assert.Equal(t, "user_123", r.Header.Get("Clerk-Id"))

		io.WriteString(w, `{"transactions":[{"id":"t9","date":"2025-09-13","description":"Lunch","amount":-12.0}],"goals":[],"policies":[]}`)
	}))
	defer srv.Close()

	fin, err := NewClient(srv.URL).AddTransaction(context.Background(), testIdentity, finance.NewTransaction{
		Date:        "2025-09-13",
		Description: "Lunch",
		Amount:      decimal.NewFromInt(-12),
	})
	require.NoError(t, err)
	require.Len(t, fin.Transactions, 1)
	assert.Equal(t, "t9", fin.Transactions[0].ID)
}

func TestErrorDetailSurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"File must be a CSV."}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Upload(context.Background(), testIdentity, "x.csv", strings.NewReader("Date,Description,Amount\n"))
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "File must be a CSV.", apiErr.Detail)
}

func TestErrorFallbackWhenBodyUnparseable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `<html>boom</html>`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchContext(context.Background(), testIdentity)
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "unknown server error", apiErr.Detail)
}

func TestSetGoal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/goal/", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"goal_name":"Vacation","target_amount":1000}`, string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).SetGoal(context.Background(), testIdentity, finance.NewGoal{
		GoalName:     "Vacation",
		TargetAmount: decimal.NewFromInt(1000),
	})
	assert.NoError(t, err)
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(srv.URL).FetchContext(ctx, testIdentity)
	assert.Error(t, err)
}
