package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"gopkg.in/dnaeon/go-vcr.v3/cassette"
	"gopkg.in/dnaeon/go-vcr.v3/recorder"

	"github.com/noteport/noteport/capability"
	"github.com/noteport/noteport/dirtree"
	"github.com/noteport/noteport/gitsnap"
	"github.com/noteport/noteport/notesrv"
	"github.com/noteport/noteport/pagearchive"
	"github.com/noteport/noteport/pipeline"
	"github.com/noteport/noteport/vault"
)

// buildAPI turns the root flags into an authenticated server client.  When
// WithVCR is set, responses are recorded/replayed through go-vcr and auth
// headers are scrubbed from the cassette.
func buildAPI(withVCR bool) (*notesrv.API, func(), error) {
	cleanup := func() {}

	if ServerURL == "" {
		return nil, cleanup, fmt.Errorf("cmd: no note server configured.  Use --server or set it in your config file")
	}
	if len(AuthTokenCmd) < 1 {
		return nil, cleanup, fmt.Errorf("cmd: please provide --auth-token-cmd")
	}

	token_cmd_output, err := exec.Command(AuthTokenCmd[0], AuthTokenCmd[1:]...).Output()
	if err != nil {
		return nil, cleanup, fmt.Errorf("cmd: couldn't execute auth-token-cmd '%v': %w", AuthTokenCmd, err)
	}
	token := strings.Split(string(token_cmd_output), "\n")[0]

	api, err := notesrv.NewAPI(ServerURL, token)
	if err != nil {
		return nil, cleanup, fmt.Errorf("cmd: note server API creation failed: %w", err)
	}

	if withVCR {
		opts := &recorder.Options{
			CassetteName:       "fixtures/noteport-server",
			Mode:               recorder.ModeReplayWithNewEpisodes,
			SkipRequestLatency: true,
			RealTransport:      http.DefaultTransport,
		}
		r, err := recorder.NewWithOptions(opts)
		if err != nil {
			return nil, cleanup, fmt.Errorf("cmd: couldn't set up go-vcr recording: %w", err)
		}

		cleanup = func() { r.Stop() }

		// Remove Authorization headers from all recorded requests
		hook := func(i *cassette.Interaction) error {
			delete(i.Request.Headers, "Authorization")
			return nil
		}
		r.AddHook(hook, recorder.AfterCaptureHook)
		r.SetReplayableInteractions(true)

		api.Client = r.GetDefaultClient()
	}

	return api, cleanup, nil
}

// buildManager registers every format handler against the given repository.
func buildManager(repo pipeline.Repository) *pipeline.Manager {
	loader := capability.NewLoader()

	var logger *log.Logger
	if Debug {
		logger = log.New(os.Stderr, "[noteport] ", 0)
	}

	opts := []pipeline.ManagerOption{pipeline.WithProgressOutput(os.Stderr)}
	if logger != nil {
		opts = append(opts, pipeline.WithLogger(logger))
	}

	m := pipeline.NewManager(repo, opts...)

	m.RegisterImporter(vault.NewImporter(loader))
	m.RegisterExporter(vault.NewExporter(loader))
	m.RegisterImporter(pagearchive.NewImporter(loader))
	m.RegisterExporter(pagearchive.NewExporter(loader))
	m.RegisterImporter(dirtree.NewImporter(loader))
	m.RegisterExporter(dirtree.NewExporter(loader))
	m.RegisterImporter(gitsnap.NewImporter(loader))
	m.RegisterExporter(gitsnap.NewExporter(loader))
	m.RegisterSyncer(gitsnap.NewSyncer(loader))

	return m
}
