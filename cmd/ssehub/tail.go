package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/urfave/cli/v2"

	"github.com/kbukum/ssehub/sse"
)

var tailOpts struct {
	URL      string
	Channels cli.StringSlice
	User     string
	Session  string
}

var tailCommand = &cli.Command{
	Name:  "tail",
	Usage: "open an event stream and print every event",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "url",
			Usage:       "stream endpoint",
			Value:       "http://localhost:8080/events",
			Destination: &tailOpts.URL,
		},
		&cli.StringSliceFlag{
			Name:        "channel",
			Usage:       "channel to subscribe to, repeatable; wildcards such as orders.* are allowed",
			Destination: &tailOpts.Channels,
		},
		&cli.StringFlag{
			Name:        "user",
			Usage:       "user id sent as X-User-ID",
			Required:    true,
			Destination: &tailOpts.User,
		},
		&cli.StringFlag{
			Name:        "session",
			Usage:       "session id sent as X-Session-ID",
			Destination: &tailOpts.Session,
		},
	},
	Action: tail,
}

func tail(c *cli.Context) error {
	u, err := url.Parse(tailOpts.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", tailOpts.URL, err)
	}
	q := u.Query()
	for _, ch := range tailOpts.Channels.Value() {
		q.Add("channel", ch)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(c.Context, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-User-ID", tailOpts.User)
	if tailOpts.Session != "" {
		req.Header.Set("X-Session-ID", tailOpts.Session)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("open stream: %s: %s", resp.Status, body)
	}

	return printEvents(c.App.Writer, sse.NewReader(resp.Body))
}

func printEvents(w io.Writer, r *sse.Reader) error {
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		eventType := ev.Type
		if eventType == "" {
			eventType = sse.EventTypeMessage
		}
		if ev.ID != "" {
			fmt.Fprintf(w, "[%s] id=%s %s\n", eventType, ev.ID, ev.Data)
		} else {
			fmt.Fprintf(w, "[%s] %s\n", eventType, ev.Data)
		}
	}
}
