// `navstat serve` - answer HTTP API requests about saved reports.  See navstat/daemon for the API.

package serve

import (
	"context"
	"errors"
	"fmt"
	"io"

	. "navstat/cmd"
	"navstat/daemon"
	"navstat/report"
)

type ServeCommand struct {
	DevArgs
	LoggingArgs
	FileArgs
	LabelArgs

	Port     uint
	AuthFile string

	version string
}

var _ = (Command)((*ServeCommand)(nil))
var _ = (SetRestArgumentsAPI)((*ServeCommand)(nil))

func New(version string) *ServeCommand {
	return &ServeCommand{version: version}
}

func (sc *ServeCommand) Summary(out io.Writer) {
	fmt.Fprint(out, `Serve saved reports over HTTP: GET /traces, /traces/{label},
/traces/{label}/{category} and /compare/{category}.  SIGHUP reloads the
reports, SIGTERM stops the server.
`)
}

func (sc *ServeCommand) RestName() string {
	return "report"
}

func (sc *ServeCommand) Add(fs *CLI) {
	sc.DevArgs.Add(fs)
	sc.LoggingArgs.Add(fs)
	sc.LabelArgs.Add(fs)
	fs.Group("daemon")
	fs.UintVar(&sc.Port, "port", daemon.DefaultListenPort, "Listen for connections on `port`")
	fs.StringVar(&sc.AuthFile, "auth-file", "",
		"Require HTTP basic authentication against the username:password lines of `filename`")
}

func (sc *ServeCommand) Validate() error {
	var e1, e2, e3, e4 error
	e1 = sc.DevArgs.Validate()
	e2 = sc.FileArgs.Validate()
	if e2 == nil {
		e2 = sc.RequireFiles()
		e3 = sc.LabelArgs.Resolve(sc.Files, false)
	}
	if sc.Port == 0 || sc.Port > 65535 {
		e4 = errors.New("Bad -port value")
	}
	return errors.Join(e1, e2, e3, e4)
}

func (sc *ServeCommand) Perform(_ context.Context, _ io.Reader, _, _ io.Writer) error {
	return daemon.Run(
		daemon.Options{
			Port:     int(sc.Port),
			AuthFile: sc.AuthFile,
			Version:  sc.version,
		},
		func() (*report.Collection, error) {
			return LoadCollection(sc.Files, sc.Labels)
		},
	)
}
