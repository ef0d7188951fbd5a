// The `serve` daemon: loads reports and answers API requests about them until it is stopped.
//
// Sending SIGTERM or SIGINT shuts the daemon down in an orderly manner.  SIGHUP reloads the reports
// and rereads the password file; if either fails the old data are kept.

package daemon

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	. "navstat/common"
	"navstat/report"
)

const (
	DefaultListenPort = 8088
	authRealm         = "navstat report access"
)

type Options struct {
	Port     int
	AuthFile string
	Version  string
}

type Loader func() (*report.Collection, error)

func Run(opts Options, load Loader) error {
	coll, err := load()
	if err != nil {
		return err
	}
	store := NewStore(coll)

	var auth *Authenticator
	if opts.AuthFile != "" {
		auth, err = ReadPasswords(opts.AuthFile)
		if err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	NewAPI(mux, store, opts.Version)

	failed := make(chan error, 1)
	s := NewServer(opts.Port, RequireAuth(mux, auth, authRealm), func(err error) {
		failed <- err
	})

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	defer signal.Stop(signals)

	return run(s, s.Start, signals, failed, func() {
		reload(store, auth, load)
	})
}

func run(s *Server, start func(), signals <-chan os.Signal, failed <-chan error, reload func()) error {
	go start()
	for {
		select {
		case sig := <-signals:
			if sig == syscall.SIGHUP {
				reload()
				continue
			}
			Log.Infof("Stopping on %v", sig)
			s.Stop()
			return nil
		case err := <-failed:
			s.Stop()
			return errors.Join(errors.New("HTTP server failed to start, or errored out"), err)
		}
	}
}

func reload(store *Store, auth *Authenticator, load Loader) {
	Log.Info("Reloading")
	if auth != nil {
		if err := auth.Reread(); err != nil {
			Log.Errorf("Failed to reread password file: %v", err)
		}
	}
	coll, err := load()
	if err != nil {
		Log.Errorf("Failed to reload reports, keeping the old ones: %v", err)
		return
	}
	store.Replace(coll)
}
