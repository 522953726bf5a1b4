// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package github

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
)

var (
	_ QuotaSource = (*RESTQuota)(nil)
	_ QuotaSource = (*GraphQLQuota)(nil)
	_ QuotaSource = StaticQuota(0)
	_ QuotaSource = QuotaFunc(nil)
)

func TestRESTQuota_Remaining(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    int
		wantErr error
	}{
		{
			name:   "reports core remaining",
			status: http.StatusOK,
			body:   `{"resources":{"core":{"limit":5000,"remaining":42},"search":{"remaining":9}}}`,
			want:   42,
		},
		{
			name:   "zero remaining",
			status: http.StatusOK,
			body:   `{"resources":{"core":{"remaining":0}}}`,
			want:   0,
		},
		{
			name:    "missing field",
			status:  http.StatusOK,
			body:    `{"resources":{}}`,
			wantErr: watcherrors.ErrMalformedResponse,
		},
		{
			name:    "invalid json",
			status:  http.StatusOK,
			body:    `{`,
			wantErr: watcherrors.ErrMalformedResponse,
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"message":"Bad credentials"}`,
			wantErr: watcherrors.ErrUnexpectedStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/rate_limit" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			quota := NewRESTQuota(server.Client(), server.URL+"/")
			got, err := quota.Remaining(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Remaining() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGraphQLQuota_Remaining(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "token secret" {
			t.Errorf("Authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Query string `json:"query"`
		}
		_ = json.Unmarshal(body, &req)
		if !strings.Contains(req.Query, "rateLimit") || !strings.Contains(req.Query, "remaining") {
			t.Errorf("unexpected query %q", req.Query)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"rateLimit":{"remaining":1234}}}`))
	}))
	defer server.Close()

	client := NewClient(Options{Token: "secret", Retry: NoRetry()})
	quota := NewGraphQLQuota(client.HTTPClient(), server.URL+"/graphql")

	got, err := quota.Remaining(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1234 {
		t.Errorf("Remaining() = %d, want 1234", got)
	}
}

func TestGraphQLQuota_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors":[{"message":"Bad credentials"}]}`))
	}))
	defer server.Close()

	quota := NewGraphQLQuota(server.Client(), server.URL)
	if _, err := quota.Remaining(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
