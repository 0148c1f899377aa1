package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdaptools/rdap/internal/httpclient"
	"github.com/rdaptools/rdap/internal/query"
	"github.com/rdaptools/rdap/internal/response"
)

func rdapHandler(body string, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rdap+json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newTestResolver() *Resolver {
	policy := httpclient.DefaultPolicy()
	policy.AllowHTTP = true
	return New(nil, httpclient.New(policy, nil))
}

func TestResolve_SuccessOnFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(rdapHandler(`{"objectClassName":"domain","ldhName":"example.com"}`, http.StatusOK))
	defer srv.Close()

	r := newTestResolver()
	plan := ResolutionPlan{Attempts: []Attempt{{URL: srv.URL}}}

	obj, finalURL, err := r.Resolve(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, finalURL)
	domain, ok := obj.(response.Domain)
	require.True(t, ok)
	assert.Equal(t, "example.com", domain.LdhName)
}

func TestResolve_FallsThroughToNextURLOn5xx(t *testing.T) {
	bad := httptest.NewServer(rdapHandler(`{}`, http.StatusInternalServerError))
	defer bad.Close()
	good := httptest.NewServer(rdapHandler(`{"objectClassName":"domain","ldhName":"example.com"}`, http.StatusOK))
	defer good.Close()

	r := newTestResolver()
	plan := ResolutionPlan{Attempts: []Attempt{{URL: bad.URL}, {URL: good.URL}}}

	obj, finalURL, err := r.Resolve(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, good.URL, finalURL)
	_, ok := obj.(response.Domain)
	assert.True(t, ok)
}

func TestResolve_AllAttemptsFail(t *testing.T) {
	bad := httptest.NewServer(rdapHandler(`{}`, http.StatusInternalServerError))
	defer bad.Close()

	r := newTestResolver()
	plan := ResolutionPlan{Attempts: []Attempt{{URL: bad.URL}}}

	_, _, err := r.Resolve(context.Background(), plan)
	require.Error(t, err)
}

func TestResolve_FollowsRedirect(t *testing.T) {
	final := httptest.NewServer(rdapHandler(`{"objectClassName":"domain","ldhName":"redirected.example"}`, http.StatusOK))
	defer final.Close()

	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", final.URL)
		w.WriteHeader(http.StatusFound)
	}))
	defer redirecting.Close()

	r := newTestResolver()
	plan := ResolutionPlan{Attempts: []Attempt{{URL: redirecting.URL}}}

	obj, finalURL, err := r.Resolve(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, final.URL, finalURL)
	domain, ok := obj.(response.Domain)
	require.True(t, ok)
	assert.Equal(t, "redirected.example", domain.LdhName)
}

func TestResolve_TooManyRedirectsGivesUp(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", srv.URL)
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	r := newTestResolver()
	plan := ResolutionPlan{Attempts: []Attempt{{URL: srv.URL}}}

	_, _, err := r.Resolve(context.Background(), plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooManyRedirects)
}

func TestResolve_404WithParsableBodyReturnsErrorResponse(t *testing.T) {
	srv := httptest.NewServer(rdapHandler(`{"errorCode": 404, "title": "Not Found"}`, http.StatusNotFound))
	defer srv.Close()

	r := newTestResolver()
	plan := ResolutionPlan{Attempts: []Attempt{{URL: srv.URL}}}

	obj, _, err := r.Resolve(context.Background(), plan)
	require.NoError(t, err)
	errResp, ok := obj.(response.ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, 404, errResp.ErrorCode)
}

func TestJoinQueryPath(t *testing.T) {
	q := query.Query{Kind: query.KindDomain, ALabel: "example.com"}
	assert.Equal(t, "https://rdap.example/domain/example.com", joinQueryPath("https://rdap.example/", q))

	q2 := query.Query{Kind: query.KindAutNum, ASN: 15169}
	assert.Equal(t, "https://rdap.example/autnum/15169", joinQueryPath("https://rdap.example", q2))

	q3 := query.Query{Kind: query.KindURL, Raw: "https://other.example/rdap/domain/x.com"}
	assert.Equal(t, "https://other.example/rdap/domain/x.com", joinQueryPath("https://rdap.example", q3))
}

func TestPlan_NameserverHintResolvesUnderNameserverPath(t *testing.T) {
	bs := newOverrideBootstrap(t, map[string]string{"dns.json": dnsRegistryJSON})
	r := New(bs, nil)

	q, err := query.Classify("ns1.example.com", query.HintNameserver)
	require.NoError(t, err)
	require.Equal(t, query.KindNameserver, q.Kind)

	plan, err := r.Plan(context.Background(), q, Policy{})
	require.NoError(t, err)
	require.Len(t, plan.Attempts, 1)
	assert.Equal(t, "https://rdap.verisign.com/nameserver/ns1.example.com", plan.Attempts[0].URL)
}

func TestTraverseLinks_FollowsMatchingRelBreadthFirst(t *testing.T) {
	registrar := httptest.NewServer(rdapHandler(`{"objectClassName":"entity","handle":"REGISTRAR-1"}`, http.StatusOK))
	defer registrar.Close()

	root := response.Domain{
		Common: response.Common{
			ObjectClassName: "domain",
			Links: []response.Link{
				{Rel: "registrar", Href: registrar.URL},
				{Rel: "self", Href: "https://example/domain/foo"},
			},
		},
		LdhName: "foo.example",
	}

	r := newTestResolver()
	node := r.TraverseLinks(context.Background(), root, "https://example/domain/foo", PresetRegistrar)

	require.Len(t, node.Children, 1)
	assert.Equal(t, registrar.URL, node.Children[0].URL)
	assert.Equal(t, 1, node.Children[0].Depth)
}

func TestTraverseLinks_DetectsCycle(t *testing.T) {
	root := response.Domain{
		Common: response.Common{
			ObjectClassName: "domain",
			Links: []response.Link{
				{Rel: "up", Href: "https://example/domain/foo"},
			},
		},
	}

	r := newTestResolver()
	node := r.TraverseLinks(context.Background(), root, "https://example/domain/foo", PresetUp)

	assert.Empty(t, node.Children)
	require.Len(t, node.Findings, 1)
	assert.Contains(t, node.Findings[0], "cycle detected")
}

func TestTraverseLinks_RespectsMaxDepth(t *testing.T) {
	leaf := httptest.NewServer(rdapHandler(`{"objectClassName":"domain","ldhName":"leaf.example"}`, http.StatusOK))
	defer leaf.Close()

	mid := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rdap+json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"objectClassName":"domain","ldhName":"mid.example","links":[{"rel":"up","href":"` + leaf.URL + `"}]}`))
	}))
	defer mid.Close()

	root := response.Domain{
		Common: response.Common{
			ObjectClassName: "domain",
			Links:           []response.Link{{Rel: "up", Href: mid.URL}},
		},
	}

	r := newTestResolver()
	policy := LinkTargetPolicy{Targets: []string{"up"}, MaxDepth: 1}
	node := r.TraverseLinks(context.Background(), root, "https://example/root", policy)

	require.Len(t, node.Children, 1)
	assert.Empty(t, node.Children[0].Children, "traversal should stop once MaxDepth is reached")
}

func TestFlatten_RespectsMinDepth(t *testing.T) {
	root := &Node{URL: "root", Depth: 0, Children: []*Node{
		{URL: "child", Depth: 1, Children: []*Node{
			{URL: "grandchild", Depth: 2},
		}},
	}}

	all := Flatten(root, 0)
	assert.Len(t, all, 3)

	deep := Flatten(root, 1)
	assert.Len(t, deep, 2)
}

func TestPreset(t *testing.T) {
	p, ok := Preset("registry")
	require.True(t, ok)
	assert.Equal(t, PresetRegistry, p)

	_, ok = Preset("nonexistent")
	assert.False(t, ok)
}
