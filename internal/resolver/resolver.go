// Package resolver implements §4.4: given a typed query, produce an
// ordered list of base-URL attempts, chase 3xx redirects and alternate
// service URLs, and (optionally) traverse link-targets in the resulting
// response tree.
package resolver

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rdaptools/rdap/internal/bootstrap"
	"github.com/rdaptools/rdap/internal/httpclient"
	"github.com/rdaptools/rdap/internal/query"
	"github.com/rdaptools/rdap/internal/response"
)

// MaxRedirectHops bounds 3xx-chasing, per §4.4 "bounded by a maximum hop
// count (default 5)".
const MaxRedirectHops = 5

// LinkTargetPolicy controls link-target traversal depth and filtering, per
// §4.4 "Link-target traversal".
type LinkTargetPolicy struct {
	Targets       []string // link "rel" values to follow
	MinDepth      int
	MaxDepth      int
	OnlyShowTargets bool
}

// Presets, per §4.4: "registry, registrar, up, down, top, bottom".
var (
	PresetRegistry = LinkTargetPolicy{Targets: []string{"registry"}, MinDepth: 0, MaxDepth: 1}
	PresetRegistrar = LinkTargetPolicy{Targets: []string{"registrar"}, MinDepth: 0, MaxDepth: 1}
	PresetUp       = LinkTargetPolicy{Targets: []string{"up"}, MinDepth: 0, MaxDepth: 1}
	PresetDown     = LinkTargetPolicy{Targets: []string{"down"}, MinDepth: 0, MaxDepth: 1}
	PresetTop      = LinkTargetPolicy{Targets: []string{"up"}, MinDepth: 0, MaxDepth: 10}
	PresetBottom   = LinkTargetPolicy{Targets: []string{"down"}, MinDepth: 0, MaxDepth: 10}
)

// Policy is the resolver's full input per §4.4.
type Policy struct {
	BaseURLOverride    string
	ObjectTagOverride  string
	TLDLookupOverride  string
	INRBackupBootstrap string
	LinkTargets        LinkTargetPolicy
}

// Attempt is one (url, expected-kind) entry of a ResolutionPlan.
type Attempt struct {
	URL          string
	ExpectedKind bootstrap.Kind
}

// ResolutionPlan is the ordered list of attempts §4.4 describes.
type ResolutionPlan struct {
	Attempts []Attempt
}

// Node is one result in the link-target traversal tree, per §4.4: results
// "form a tree that the caller may flatten".
type Node struct {
	URL      string
	Depth    int
	Object   response.Object
	Children []*Node
	Findings []string // e.g. cycle-detected warnings, surfaced as §4.4 describes
}

// Errors per §7 ResolverError.
var (
	ErrNoBase           = errors.New("resolver: no base url could be determined")
	ErrTooManyRedirects = errors.New("resolver: exceeded maximum redirect hops")
	ErrNoRegistrarFound = errors.New("resolver: no registrar base found")
	ErrNoRegistryFound  = errors.New("resolver: no registry base found")
)

// Resolver ties the bootstrap Store and HTTP client together to satisfy a
// client query end-to-end.
type Resolver struct {
	Bootstrap *bootstrap.Store
	HTTP      *httpclient.Client
	log       *logrus.Entry
}

func New(store *bootstrap.Store, http *httpclient.Client) *Resolver {
	return &Resolver{Bootstrap: store, HTTP: http, log: logrus.WithField("component", "resolver")}
}

// Plan builds the ordered attempt list for q, per §4.4's algorithm.
func (r *Resolver) Plan(ctx context.Context, q query.Query, policy Policy) (ResolutionPlan, error) {
	if policy.BaseURLOverride != "" {
		return ResolutionPlan{Attempts: []Attempt{{URL: joinQueryPath(policy.BaseURLOverride, q)}}}, nil
	}

	if q.Kind == query.KindEntity && policy.ObjectTagOverride != "" {
		reg, err := r.Bootstrap.Fetch(ctx, bootstrap.KindObjectTag)
		if err == nil {
			if urls := reg.LookupObjectTag(policy.ObjectTagOverride); len(urls) > 0 {
				return planFromURLs(urls, q), nil
			}
		}
	}

	urls, err := bootstrap.FetchAndLookup(ctx, r.Bootstrap, q)
	if err != nil {
		return ResolutionPlan{}, err
	}

	if len(urls) == 0 && (isINRKind(q.Kind)) && policy.INRBackupBootstrap != "" {
		return ResolutionPlan{Attempts: []Attempt{{URL: joinQueryPath(policy.INRBackupBootstrap, q)}}}, nil
	}

	if len(urls) == 0 {
		return ResolutionPlan{}, ErrNoBase
	}

	return planFromURLs(urls, q), nil
}

func isINRKind(k query.Kind) bool {
	switch k {
	case query.KindIPv4Addr, query.KindIPv6Addr, query.KindIPv4Cidr, query.KindIPv6Cidr,
		query.KindReverseDNS, query.KindAutNum:
		return true
	default:
		return false
	}
}

func planFromURLs(urls []string, q query.Query) ResolutionPlan {
	plan := ResolutionPlan{}
	for _, u := range urls {
		plan.Attempts = append(plan.Attempts, Attempt{URL: joinQueryPath(u, q)})
	}
	return plan
}

// joinQueryPath appends the RDAP path for q's kind to a bootstrap base URL.
func joinQueryPath(base string, q query.Query) string {
	base = strings.TrimSuffix(base, "/")
	switch q.Kind {
	case query.KindDomain:
		return base + "/domain/" + q.ALabel
	case query.KindNameserver:
		return base + "/nameserver/" + q.ALabel
	case query.KindEntity:
		return base + "/entity/" + q.Handle
	case query.KindAutNum:
		return base + "/autnum/" + strconv.FormatUint(uint64(q.ASN), 10)
	case query.KindIPv4Addr, query.KindIPv6Addr:
		return base + "/ip/" + q.IP.String()
	case query.KindIPv4Cidr, query.KindIPv6Cidr, query.KindReverseDNS:
		return base + "/ip/" + q.CIDR.String()
	case query.KindServerHelp:
		return base + "/help"
	case query.KindURL:
		return q.Raw
	default:
		return base
	}
}

// Resolve executes a ResolutionPlan: it tries each attempt URL in order,
// following 3xx redirects (bounded by MaxRedirectHops) and falling through
// to the next URL in the plan on connection or 5xx error, per §4.4 and §7's
// retry-then-next-url propagation policy.
func (r *Resolver) Resolve(ctx context.Context, plan ResolutionPlan) (response.Object, string, error) {
	var lastErr error
	for _, attempt := range plan.Attempts {
		obj, finalURL, err := r.resolveOne(ctx, attempt.URL)
		if err == nil {
			return obj, finalURL, nil
		}
		lastErr = err
		r.log.WithError(err).WithField("url", attempt.URL).Debug("attempt failed, trying next url")
	}
	if lastErr == nil {
		lastErr = ErrNoBase
	}
	return nil, "", lastErr
}

func (r *Resolver) resolveOne(ctx context.Context, url string) (response.Object, string, error) {
	for hop := 0; hop <= MaxRedirectHops; hop++ {
		res, err := r.HTTP.Do(ctx, url)
		if err != nil {
			return nil, "", err
		}

		if res.StatusCode >= 300 && res.StatusCode < 400 {
			loc := res.Header.Get("Location")
			if loc == "" {
				return nil, "", errors.Errorf("redirect status %d with no Location", res.StatusCode)
			}
			if hop == MaxRedirectHops {
				return nil, "", ErrTooManyRedirects
			}
			url = loc
			continue
		}

		if res.StatusCode == http.StatusNotFound {
			obj, perr := response.Parse(res.Body)
			if perr == nil {
				return obj, url, nil
			}
			return nil, "", errors.Errorf("404 at %s", url)
		}

		if res.StatusCode != http.StatusOK {
			return nil, "", errors.Errorf("unexpected status %d at %s", res.StatusCode, url)
		}

		obj, err := response.Parse(res.Body)
		if err != nil {
			return nil, "", err
		}
		return obj, url, nil
	}
	return nil, "", ErrTooManyRedirects
}
