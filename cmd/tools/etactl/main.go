package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] no .env loaded, using system environment: %v", err)
	}

	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	mode    string
	addr    string
	id      string
	name    string
	code    string
	kind    string
	timeout time.Duration
}

func parseFlags(args []string) (options, error) {
	var opts options
	defaultAddr := os.Getenv("ETACTL_ADDR")
	if defaultAddr == "" {
		defaultAddr = "http://localhost:8080"
	}

	fs := pflag.NewFlagSet("etactl", pflag.ContinueOnError)
	fs.StringVarP(&opts.mode, "mode", "m", "list", "list, get, add, remove, clear or eta")
	fs.StringVar(&opts.addr, "addr", defaultAddr, "backend base URL")
	fs.StringVar(&opts.id, "id", "", "favorite id (get/remove; optional for add)")
	fs.StringVar(&opts.name, "name", "", "favorite name (add)")
	fs.StringVar(&opts.code, "code", "", "stop code (add/eta)")
	fs.StringVar(&opts.kind, "type", "", "transport type: bus, train or tram (add)")
	fs.DurationVar(&opts.timeout, "timeout", 45*time.Second, "request timeout")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.addr = strings.TrimRight(opts.addr, "/")
	return opts, nil
}

func run(args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	c := &client{base: opts.addr, http: &http.Client{}}

	switch opts.mode {
	case "list":
		return c.do(ctx, out, http.MethodGet, "/api/favorites", nil)
	case "get":
		if opts.id == "" {
			return errors.New("get mode requires --id")
		}
		return c.do(ctx, out, http.MethodGet, "/api/favorites/"+url.PathEscape(opts.id), nil)
	case "add":
		if opts.name == "" || opts.code == "" {
			return errors.New("add mode requires --name and --code")
		}
		return c.do(ctx, out, http.MethodPost, "/api/favorites", map[string]string{
			"id":   opts.id,
			"name": opts.name,
			"code": opts.code,
			"type": opts.kind,
		})
	case "remove":
		if opts.id == "" {
			return errors.New("remove mode requires --id")
		}
		return c.do(ctx, out, http.MethodDelete, "/api/favorites/"+url.PathEscape(opts.id), nil)
	case "clear":
		return c.do(ctx, out, http.MethodDelete, "/api/favorites", nil)
	case "eta":
		if opts.code == "" {
			return errors.New("eta mode requires --code")
		}
		return c.do(ctx, out, http.MethodPost, "/api/eta/"+url.PathEscape(opts.code), nil)
	default:
		return fmt.Errorf("unknown mode %q", opts.mode)
	}
}

type client struct {
	base string
	http *http.Client
}

// do sends the request and pretty-prints the JSON reply to out.
func (c *client) do(ctx context.Context, out io.Writer, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		_, err = fmt.Fprintf(out, "%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		_, err = out.Write(data)
		return err
	}
	pretty.WriteByte('\n')
	_, err = pretty.WriteTo(out)
	return err
}
