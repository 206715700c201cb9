package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"voicenote/internal/audio"
	"voicenote/internal/config"
	"voicenote/internal/environment"
	"voicenote/internal/folders"
	"voicenote/internal/logging"
	"voicenote/internal/providers/deepgram"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check whether dictation can run here",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDoctor(cmd.Context(), cmd.OutOrStdout())
	},
}

type check struct {
	name   string
	ok     bool
	detail string
}

func runDoctor(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.Log.Level)

	capture := audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand, logger)
	recognizer := deepgram.NewRecognizer(deepgram.Config{
		APIKey:     cfg.Deepgram.APIKey,
		APIBaseURL: cfg.Deepgram.APIBaseURL,
		Model:      cfg.Deepgram.Model,
	}, capture, logger)

	checks := []check{
		{name: "api key", ok: cfg.Deepgram.APIKey != "", detail: "DEEPGRAM_API_KEY"},
		{name: "recorder", ok: capture.Available(), detail: cfg.Audio.RecorderCommand},
		{name: "dictation", ok: recognizer.Available(), detail: cfg.Session.Locale},
	}

	markers, err := environment.NewProbe().Detect(ctx)
	switch {
	case err != nil:
		checks = append(checks, check{name: "environment", detail: err.Error()})
	case len(markers) > 0:
		names := make([]string, len(markers))
		for i, m := range markers {
			names[i] = string(m)
		}
		checks = append(checks, check{name: "environment", detail: "may block microphone: " + strings.Join(names, ", ")})
	default:
		checks = append(checks, check{name: "environment", ok: true, detail: "unrestricted"})
	}

	list, err := folders.Load(cfg.Folders.Path)
	if err != nil {
		checks = append(checks, check{name: "folders", detail: err.Error()})
	} else {
		checks = append(checks, check{name: "folders", ok: true, detail: fmt.Sprintf("%d in %s", len(list), cfg.Folders.Path)})
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Check", "Status", "Detail"})
	table.SetAutoWrapText(false)
	for _, c := range checks {
		status := "ok"
		if !c.ok {
			status = "warn"
		}
		table.Append([]string{c.name, status, c.detail})
	}
	table.Render()
	return nil
}
