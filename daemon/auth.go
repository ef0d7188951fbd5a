package daemon

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
)

// A password file has a sequence of lines, each with a username:password syntax (blanks are
// significant, but empty lines are ignored).  The authenticator can be reread from the same file,
// which is presumed to have changed; if rereading fails the authenticator is unchanged.
//
// MT: Locked
type Authenticator struct {
	lock       sync.RWMutex
	filepath   string
	identities map[string]string
}

func ReadPasswords(filename string) (*Authenticator, error) {
	mapping, err := readPasswords(filename)
	if err != nil {
		return nil, err
	}
	return &Authenticator{
		filepath:   filename,
		identities: mapping,
	}, nil
}

func readPasswords(filename string) (map[string]string, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string)
	for i, l := range strings.Split(string(bs), "\n") {
		s := strings.TrimSpace(l)
		if s == "" {
			continue
		}
		xs := strings.Split(s, ":")
		if len(xs) != 2 {
			return nil, fmt.Errorf("Password file has the wrong format (line %d)", i+1)
		}
		if _, found := m[xs[0]]; found {
			return nil, fmt.Errorf("Password file has duplicated user name (line %d)", i+1)
		}
		m[xs[0]] = xs[1]
	}
	return m, nil
}

func (a *Authenticator) Authenticate(user, pass string) bool {
	a.lock.RLock()
	defer a.lock.RUnlock()
	probe, found := a.identities[user]
	return found && probe == pass
}

func (a *Authenticator) Reread() error {
	m, err := readPasswords(a.filepath)
	if err != nil {
		return err
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	a.identities = m
	return nil
}

// RequireAuth wraps h with HTTP basic authentication against a.  A nil authenticator lets
// everything through.

func RequireAuth(h http.Handler, a *Authenticator, realm string) http.Handler {
	if a == nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !a.Authenticate(user, pass) {
			w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, "Unauthorized")
			return
		}
		h.ServeHTTP(w, r)
	})
}
