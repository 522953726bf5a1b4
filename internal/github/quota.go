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
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shurcooL/graphql"
	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
)

// QuotaSource reports how many API requests remain in the current window.
type QuotaSource interface {
	Remaining(ctx context.Context) (int, error)
}

// RESTQuota reads resources.core.remaining from GET /rate_limit. The call
// itself does not count against the quota.
type RESTQuota struct {
	client   *http.Client
	endpoint string
}

// NewRESTQuota creates a quota probe against apiEndpoint (for example
// https://api.github.com). client should carry the auth transport.
func NewRESTQuota(client *http.Client, apiEndpoint string) *RESTQuota {
	if apiEndpoint == "" {
		apiEndpoint = DefaultAPIEndpoint
	}
	return &RESTQuota{
		client:   client,
		endpoint: strings.TrimRight(apiEndpoint, "/") + "/rate_limit",
	}
}

// Remaining implements QuotaSource.
func (q *RESTQuota) Remaining(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build rate limit request: %w", err)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rate limit probe: %v: %w", err, watcherrors.ErrNetworkFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, newAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("rate limit probe: %v: %w", err, watcherrors.ErrNetworkFailure)
	}

	var body struct {
		Resources struct {
			Core struct {
				Remaining *int `json:"remaining"`
			} `json:"core"`
		} `json:"resources"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return 0, fmt.Errorf("rate limit probe: %v: %w", err, watcherrors.ErrMalformedResponse)
	}
	if body.Resources.Core.Remaining == nil {
		return 0, fmt.Errorf("rate limit probe: missing resources.core.remaining: %w", watcherrors.ErrMalformedResponse)
	}
	return *body.Resources.Core.Remaining, nil
}

// GraphQLQuota reads rateLimit.remaining from the GraphQL API. The GraphQL
// and REST quotas are separate pools; this probe suits deployments that
// share a token with GraphQL-heavy tools.
type GraphQLQuota struct {
	client *graphql.Client
}

// NewGraphQLQuota creates a GraphQL quota probe against endpoint (for example
// https://api.github.com/graphql).
func NewGraphQLQuota(client *http.Client, endpoint string) *GraphQLQuota {
	return &GraphQLQuota{client: graphql.NewClient(endpoint, client)}
}

// Remaining implements QuotaSource.
func (q *GraphQLQuota) Remaining(ctx context.Context) (int, error) {
	var query struct {
		RateLimit struct {
			Remaining graphql.Int
		} `graphql:"rateLimit"`
	}

	if err := q.client.Query(ctx, &query, nil); err != nil {
		return 0, fmt.Errorf("graphql rate limit probe: %w", err)
	}
	return int(query.RateLimit.Remaining), nil
}
