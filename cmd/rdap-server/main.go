// Command rdap-server is the minimal RDAP server binary: it loads a
// template directory into an internal/store.Store, watches it for
// update/reload sentinels, and serves internal/rdapsrv's typed lookups
// over plain net/http. HTTP routing/muxing is deliberately thin; the
// dispatcher itself carries the lookup semantics, kept separate from the
// bucket/index layer it dispatches into.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rdaptools/rdap/internal/rdapenv"
	"github.com/rdaptools/rdap/internal/rdapsrv"
	"github.com/rdaptools/rdap/internal/store"
)

func main() {
	lvl, err := logrus.ParseLevel(rdapenv.SrvLogLevel())
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	log := logrus.WithField("component", "server")

	dataDir := rdapenv.SrvDataDir()
	st, err := store.Load(dataDir)
	if err != nil {
		log.WithError(err).Fatal("loading store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go st.WatchSentinels(ctx, 2*time.Second)

	disp := rdapsrv.New(st)
	disp.JSContactMode = rdapenv.SrvJSContactConversion()
	disp.DomainSearch = rdapenv.SrvDomainSearchByName()
	disp.NameserverSearch = rdapenv.SrvNameserverSearchByName()
	disp.NameserverIPSearch = rdapenv.SrvNameserverSearchByIP()

	mux := http.NewServeMux()
	mux.HandleFunc(disp.PathPrefix+"/domain/", objectHandler(disp.LookupDomain, disp.PathPrefix+"/domain/"))
	mux.HandleFunc(disp.PathPrefix+"/nameserver/", objectHandler(disp.LookupNameserver, disp.PathPrefix+"/nameserver/"))
	mux.HandleFunc(disp.PathPrefix+"/entity/", objectHandler(disp.LookupEntity, disp.PathPrefix+"/entity/"))
	mux.HandleFunc(disp.PathPrefix+"/autnum/", objectHandler(disp.LookupAutnum, disp.PathPrefix+"/autnum/"))
	mux.HandleFunc(disp.PathPrefix+"/ip/", objectHandler(disp.LookupIP, disp.PathPrefix+"/ip/"))
	mux.HandleFunc(disp.PathPrefix+"/help", func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, disp.Help())
	})
	mux.HandleFunc(disp.PathPrefix+"/domains", func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, disp.SearchDomainsByName(r.URL.Query().Get("name")))
	})
	mux.HandleFunc(disp.PathPrefix+"/nameservers", func(w http.ResponseWriter, r *http.Request) {
		if name := r.URL.Query().Get("name"); name != "" {
			writeResult(w, disp.SearchNameserversByName(name))
			return
		}
		writeResult(w, disp.SearchNameserversByIP(r.URL.Query().Get("ip")))
	})

	addr := rdapenv.SrvListenAddr() + ":" + rdapenv.SrvListenPort()
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

func objectHandler(lookup func(string) rdapsrv.Result, prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.URL.Path, prefix)
		writeResult(w, lookup(token))
	}
}

func writeResult(w http.ResponseWriter, res rdapsrv.Result) {
	w.Header().Set("Content-Type", "application/rdap+json")
	if res.Location != "" {
		w.Header().Set("Location", res.Location)
	}
	w.WriteHeader(res.Status)
	if len(res.Body) == 0 {
		return
	}
	_, _ = w.Write([]byte(res.Body))
}
