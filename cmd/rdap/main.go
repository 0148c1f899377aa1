// Command rdap is the interactive RDAP lookup client: a REPL/args-mode CLI
// built on flag parsing plus a readline loop, driving the full
// typed-query -> bootstrap -> resolve -> check -> print pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rdaptools/rdap/internal/bootstrap"
	"github.com/rdaptools/rdap/internal/check"
	"github.com/rdaptools/rdap/internal/cmdutil"
	"github.com/rdaptools/rdap/internal/httpclient"
	"github.com/rdaptools/rdap/internal/query"
	"github.com/rdaptools/rdap/internal/rdapenv"
	"github.com/rdaptools/rdap/internal/resolver"
	"github.com/rdaptools/rdap/internal/response"
)

func main() {
	os.Exit(int(run()))
}

func run() cmdutil.ExitCode {
	var mode Modes

	bIsTty := isatty.IsTerminal(os.Stdout.Fd())

	dbPath, err := rdapenv.DefaultCacheDir(appName())
	if err != nil {
		mode.printErr(err)
		return cmdutil.ExitIO
	}

	var baseURLOverride, objectTagOverride, inrBackup, profile string
	flag.BoolVar(&mode.Color, "color", bIsTty, "force color output on/off")
	flag.BoolVar(&mode.Pretty, "pretty", bIsTty, "force pretty print on/off")
	flag.StringVar(&dbPath, "cachepath", dbPath, "override path to bootstrap/http cache")
	flag.StringVar(&mode.Hint, "hint", "", "force query kind: autnum|domain|entity|nameserver|ip")
	flag.StringVar(&mode.LinkTargets, "link-targets", "", "link-target traversal preset: registry|registrar|up|down|top|bottom")
	flag.StringVar(&mode.ToJSContact, "to-jscontact", "", "convert entity vcards: also|only")
	flag.BoolVar(&mode.ErrorOnChecks, "error-on-checks", false, "exit with a check outcome when checks report findings: 3 errors, 2 warnings, 1 informational/notes only")
	flag.BoolVar(&mode.ShowChecks, "show-checks", false, "print the check findings table alongside the response")
	flag.BoolVar(&mode.JSON, "json", false, "print raw RDAP JSON instead of pretty JSON")
	flag.StringVar(&baseURLOverride, "base", rdapenv.BaseURL(), "override base URL, skipping bootstrap")
	flag.StringVar(&objectTagOverride, "object-tag", rdapenv.Base(), "route entity queries by RFC 8521 object tag")
	flag.StringVar(&inrBackup, "inr-backup-bootstrap", "", "fallback base URL for unregistered IP/ASN space")
	flag.StringVar(&profile, "profile", "nro", "check profile group: gtld|nro|nro-asn")

	var iWri io.Writer = os.Stdout
	flag.CommandLine.SetOutput(iWri)
	flag.Usage = func() {
		fmt.Fprint(iWri, `USAGE
  rdap [OPTION]... [QUERY]...

Look up domains, nameservers, entities, autonomous systems, and IP networks
over RDAP, applying bootstrap-registry discovery, redirect/link-target
resolution, and RDAP conformance checks. Queries classify the same way a
bare token typed at a registry's own RDAP web form would: "10/8" becomes a
CIDR query, "AS15169" becomes an autnum query, and so on.

OPTION
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := os.MkdirAll(dbPath, 0775); err != nil {
		mode.printErr(err)
		return cmdutil.ExitIO
	}

	res, closeFn, err := buildResolver(dbPath)
	if err != nil {
		mode.printErr(err)
		return cmdutil.ExitIO
	}
	defer closeFn()

	policy := resolver.Policy{
		BaseURLOverride:    baseURLOverride,
		ObjectTagOverride:  objectTagOverride,
		INRBackupBootstrap: inrBackup,
	}
	if mode.LinkTargets != "" {
		preset, ok := resolver.Preset(mode.LinkTargets)
		if !ok {
			mode.printErr(fmt.Errorf("unknown link-targets preset %q", mode.LinkTargets))
			return cmdutil.ExitUserBadPreset
		}
		policy.LinkTargets = preset
	}

	checkCtx := check.Context{ProfileGroup: check.ProfileGroup(profile)}

	app := &app{mode: &mode, resolver: res, policy: policy, checkCtx: checkCtx}

	args := flag.Args()
	if len(args) == 0 {
		return app.repl()
	}
	return app.argsMode(args)
}

func appName() string {
	name := filepath.Base(os.Args[0])
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// buildResolver wires bootstrap.Store + httpclient.Client + resolver.Resolver
// over on-disk caches at dbPath, a single bbolt-backed cache directory.
func buildResolver(dbPath string) (*resolver.Resolver, func(), error) {
	bootCache, err := bootstrap.OpenCache(filepath.Join(dbPath, "bootstrap.db"))
	if err != nil {
		return nil, nil, err
	}
	bootStore := bootstrap.NewStore(bootCache, nil, bootstrap.DefaultTTL)
	if err := bootStore.LoadOverrides(dbPath); err != nil {
		logrus.WithError(err).Warn("bootstrap overrides not loaded")
	}

	var httpCache *httpclient.Cache
	if !rdapenv.NoCache() {
		httpCache, err = httpclient.OpenCache(filepath.Join(dbPath, "http-cache.db"), 0, 4096)
		if err != nil {
			return nil, nil, err
		}
	}

	httpPolicy := httpclient.DefaultPolicy()
	httpPolicy.MaxRetries = rdapenv.MaxRetries()
	httpPolicy.MaxRetrySecs = rdapenv.MaxRetrySecs()
	httpPolicy.DefaultRetry = rdapenv.DefRetrySecs()
	httpPolicy.AllowHTTP = rdapenv.AllowHTTP()

	client := httpclient.New(httpPolicy, httpCache)
	res := resolver.New(bootStore, client)

	return res, func() {}, nil
}

type app struct {
	mode     *Modes
	resolver *resolver.Resolver
	policy   resolver.Policy
	checkCtx check.Context
}

func (a *app) repl() cmdutil.ExitCode {
	rl, err := readline.New("> ")
	if err != nil {
		a.mode.printErr(err)
		return cmdutil.ExitIO
	}
	defer rl.Close()

	last := cmdutil.ExitSuccess
	for {
		line, err := rl.Readline()
		if err != nil {
			return last
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		last = a.runOne(line)
		if last != cmdutil.ExitSuccess {
			a.mode.printErr(fmt.Errorf("query %q exited %d", line, last))
		}
	}
}

func (a *app) argsMode(args []string) cmdutil.ExitCode {
	for _, tok := range args {
		if code := a.runOne(tok); code != cmdutil.ExitSuccess {
			return code
		}
	}
	return cmdutil.ExitSuccess
}

func (a *app) runOne(token string) cmdutil.ExitCode {
	hint := parseHint(a.mode.Hint)

	q, err := query.Classify(token, hint)
	if err != nil {
		a.mode.printErr(err)
		return cmdutil.ExitClassifyErr
	}

	ctx := context.Background()
	plan, err := a.resolver.Plan(ctx, q, a.policy)
	if err != nil {
		a.mode.printErr(err)
		return exitForResolverError(err)
	}

	obj, finalURL, err := a.resolver.Resolve(ctx, plan)
	if err != nil {
		a.mode.printErr(err)
		return exitForResolverError(err)
	}

	if a.mode.ToJSContact != "" {
		converted, err := applyJSContact(obj, response.ParseConversionMode(a.mode.ToJSContact))
		if err != nil {
			a.mode.printWarn("jscontact conversion failed: " + err.Error())
		} else {
			obj = converted
		}
	}

	tree := check.Check(obj, a.checkCtx)

	if a.policy.LinkTargets.Targets != nil {
		root := a.resolver.TraverseLinks(ctx, obj, finalURL, a.policy.LinkTargets)
		for _, node := range resolver.Flatten(root, a.policy.LinkTargets.MinDepth) {
			if node.Object == nil || node.Depth == 0 {
				continue
			}
			sub := check.Check(node.Object, a.checkCtx)
			tree.Children = append(tree.Children, sub)
		}
	}

	if err := printObject(os.Stdout, obj, a.mode.JSON); err != nil {
		a.mode.printErr(err)
		return cmdutil.ExitIO
	}

	if a.mode.ShowChecks || a.mode.ErrorOnChecks {
		if err := printFindings(os.Stdout, tree, a.mode.Pretty); err != nil {
			a.mode.printErr(err)
			return cmdutil.ExitIO
		}
	}

	if a.mode.ErrorOnChecks {
		switch worstClass(tree.All()) {
		case check.StandardsError, check.Cidr0Error, check.IcannExtensionError:
			return cmdutil.ExitChecksError
		case check.StandardsWarning:
			return cmdutil.ExitChecksWarning
		case check.Informational, check.SpecificationNote:
			return cmdutil.ExitChecksClean
		}
	}

	return cmdutil.ExitSuccess
}

func parseHint(s string) query.Hint {
	switch strings.ToLower(s) {
	case "autnum":
		return query.HintAutNum
	case "domain":
		return query.HintDomain
	case "entity":
		return query.HintEntity
	case "nameserver":
		return query.HintNameserver
	case "ip":
		return query.HintIP
	default:
		return query.HintNone
	}
}

func exitForResolverError(err error) cmdutil.ExitCode {
	switch {
	case errors.Is(err, resolver.ErrNoBase), errors.Is(err, resolver.ErrNoRegistryFound), errors.Is(err, resolver.ErrNoRegistrarFound):
		return cmdutil.ExitNoBase
	case errors.Is(err, resolver.ErrTooManyRedirects):
		return cmdutil.ExitTooManyRedirects
	case errors.Is(err, bootstrap.ErrBootstrapUnavailable):
		return cmdutil.ExitBootstrapUnavailable
	case errors.Is(err, httpclient.ErrWrongMediaType):
		return cmdutil.ExitWrongMediaType
	default:
		return cmdutil.ExitTransportConnect
	}
}
