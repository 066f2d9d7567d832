package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-geofield/components/geofield"
	"github.com/goliatone/go-geofield/internal/config"
	"github.com/goliatone/go-geofield/internal/picker"
	"github.com/goliatone/go-geofield/internal/prompt"
	"github.com/goliatone/go-geofield/pkg/geodata"
	"github.com/goliatone/go-geofield/pkg/store"
)

var (
	pickMediaID string
	pickName    string
	pickTitle   string
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Pick a position interactively",
	Long:  "Runs the map controller against an in-memory map and lets you search, click, drag, zoom and move the pin from the terminal. With --media the picked position is saved into the stored record.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		geocoder, err := newGeocoder(cfg.Geocode)
		if err != nil {
			return err
		}

		var st store.Store
		if pickMediaID != "" {
			st, err = openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()
		}

		driver := prompt.NewSurvey(cmd.OutOrStdout())
		return runPick(ctx, cfg, driver, geocoder, st, pickRequest{
			MediaID: pickMediaID,
			Name:    pickName,
			Title:   pickTitle,
		}, cmd.OutOrStdout())
	},
}

func init() {
	f := pickCmd.Flags()
	f.StringVar(&pickMediaID, "media", "", "media id to load and save the position into")
	f.StringVar(&pickName, "name", "location", "field name")
	f.StringVar(&pickTitle, "title", "Location", "field title")
	rootCmd.AddCommand(pickCmd)
}

type pickRequest struct {
	MediaID string
	Name    string
	Title   string
}

func runPick(ctx context.Context, c *config.Config, driver prompt.Driver, geocoder geodata.Geocoder, st store.Store, req pickRequest, out io.Writer) error {
	var media *store.Media
	title := req.Title
	if req.MediaID != "" {
		if st == nil {
			return errors.New("pick: a store is required to load media")
		}
		m, err := st.Get(ctx, req.MediaID)
		if err != nil {
			return err
		}
		media = m
		if m.Filename != "" {
			title = m.Filename
		}
	}

	field, err := geofield.NewField(req.Name, title, fieldOptions(c.Field, nil)...)
	if err != nil {
		return err
	}
	if media != nil {
		field.LoadRecord(media)
	}

	result, err := picker.New(driver, picker.WithGeocoder(geocoder), picker.WithLogger(zap.L())).Run(ctx, field)
	if errors.Is(err, prompt.ErrAborted) {
		_, err = fmt.Fprintln(out, "Cancelled, nothing changed.")
		return err
	}
	if err != nil {
		return err
	}

	for _, key := range []string{geodata.Latitude, geodata.Longitude, geodata.Zoom} {
		if _, err := fmt.Fprintf(out, "%s=%s\n", key, field.ChildValue(key)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(out, "changed=%t applied=%t\n", result.Changed, result.Applied); err != nil {
		return err
	}

	if media == nil || !result.Applied {
		return nil
	}
	if err := field.SaveInto(media); err != nil {
		return err
	}
	if err := st.Save(ctx, media); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Saved %s.\n", media.ID)
	return err
}
