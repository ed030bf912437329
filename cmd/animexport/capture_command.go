package main

import (
	"github.com/spf13/cobra"

	"github.com/hazyhaar/animexport/animexport"
)

type captureFlags struct {
	url         string
	attach      bool
	urlPattern  string
	remote      string
	stealth     string
	userDataDir string
	out         string
	token       string
	pressMode   string
	settle      string
	viewBox     string
	trigger     string
}

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var f captureFlags

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Play the editor timeline back and export it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, ctx.config)
			if err := ctx.config.Validate(); err != nil {
				return err
			}
			report, err := ctx.reconstructor(cmd).Capture(cmd.Context())
			if err != nil {
				return err
			}
			return writeReport(cmd, ctx.config, report)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.url, "url", "", "Editor URL to open (or to match when attaching)")
	fl.BoolVar(&f.attach, "attach", false, "Reuse an already open editor tab")
	fl.StringVar(&f.urlPattern, "url-pattern", "", "Regex matched against open tab URLs when attaching")
	fl.StringVar(&f.remote, "remote", "", "Remote Chrome DevTools URL instead of launching Chrome")
	fl.StringVar(&f.stealth, "stealth", "", "Browser mode: headless or headful")
	fl.StringVar(&f.userDataDir, "user-data-dir", "", "Chrome profile directory")
	fl.StringVarP(&f.out, "out", "o", "", `Output file, "-" for stdout`)
	fl.StringVar(&f.token, "token", "", "Session token prefixing export ids (random when empty)")
	fl.StringVar(&f.pressMode, "press-mode", "", "How clicks are delivered: dispatch or input")
	fl.StringVar(&f.settle, "settle", "", "Settle strategy: fixed, stable, frames or none")
	fl.StringVar(&f.viewBox, "view-box", "", "viewBox of the exported document")
	fl.StringVar(&f.trigger, "trigger", "", "Selector that starts the animation")
	return cmd
}

// apply copies the flags the user set over the loaded configuration.
func (f *captureFlags) apply(cmd *cobra.Command, cfg *animexport.Config) {
	changed := cmd.Flags().Changed
	if changed("url") {
		cfg.Editor.URL = f.url
	}
	if changed("attach") {
		cfg.Editor.Attach = f.attach
	}
	if changed("url-pattern") {
		cfg.Editor.URLPattern = f.urlPattern
	}
	if changed("remote") {
		cfg.Browser.Remote = f.remote
	}
	if changed("stealth") {
		cfg.Browser.Stealth = f.stealth
	}
	if changed("user-data-dir") {
		cfg.Browser.UserDataDir = f.userDataDir
	}
	if changed("out") {
		cfg.Export.Output = f.out
	}
	if changed("token") {
		cfg.Session.Token = f.token
	}
	if changed("press-mode") {
		cfg.Playback.PressMode = f.pressMode
	}
	if changed("settle") {
		cfg.Settle.Mode = f.settle
	}
	if changed("view-box") {
		cfg.Export.ViewBox = f.viewBox
	}
	if changed("trigger") {
		cfg.Export.Trigger = f.trigger
	}
}
