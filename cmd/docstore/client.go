package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

type docFlags struct {
	version     string
	versionType string
	ifMatch     string
	file        string
}

func (c *client) do(method, path string, body []byte, headers map[string]string) (int, []byte, error) {
	u := strings.TrimRight(c.BaseURL, "/") + path
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, u, rd)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

// docPath arma /{index}/{endpoint}[/{id}][?query].
func docPath(index, endpoint, id string, f docFlags) string {
	p := "/" + url.PathEscape(index) + "/" + endpoint
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	q := url.Values{}
	if f.version != "" {
		q.Set("version", f.version)
	}
	if f.versionType != "" {
		q.Set("version_type", f.versionType)
	}
	if len(q) > 0 {
		p += "?" + q.Encode()
	}
	return p
}

func (f docFlags) headers() map[string]string {
	if f.ifMatch == "" {
		return nil
	}
	return map[string]string{"If-Match": f.ifMatch}
}

// readDoc lee el documento de --file ("-" = stdin) o del argumento.
func readDoc(f docFlags, args []string, pos int) ([]byte, error) {
	switch {
	case f.file == "-":
		return io.ReadAll(os.Stdin)
	case f.file != "":
		return os.ReadFile(f.file)
	case len(args) > pos:
		return []byte(args[pos]), nil
	default:
		return nil, errors.New("falta el documento (argumento JSON o --file)")
	}
}

func printResponse(w io.Writer, status int, body []byte) error {
	var v any
	if json.Unmarshal(body, &v) == nil {
		p, _ := json.MarshalIndent(v, "", "  ")
		fmt.Fprintln(w, string(p))
	} else if len(body) > 0 {
		fmt.Fprintln(w, string(body))
	}
	if status/100 != 2 {
		return fmt.Errorf("status=%d", status)
	}
	return nil
}

func addClientCommands(root *cobra.Command) {
	cl := &client{
		BaseURL: envOr("DOCSTORE_URL", "http://localhost:8080"),
		Token:   envOr("DOCSTORE_TOKEN", ""),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
	root.PersistentFlags().StringVar(&cl.BaseURL, "url", cl.BaseURL, "URL base de la API (env DOCSTORE_URL)")
	root.PersistentFlags().StringVar(&cl.Token, "token", cl.Token, "Bearer token (env DOCSTORE_TOKEN)")

	versionFlags := func(cmd *cobra.Command, f *docFlags) {
		cmd.Flags().StringVar(&f.version, "version", "", "Versión esperada (internal) o nueva (external)")
		cmd.Flags().StringVar(&f.versionType, "version-type", "", "internal | external | external_gt")
		cmd.Flags().StringVar(&f.ifMatch, "if-match", "", `Header If-Match ("*" o "N")`)
	}

	var idxFlags docFlags
	indexCmd := &cobra.Command{
		Use:   "index <index> <id> [json]",
		Short: "Crea o reemplaza un documento (PUT /{index}/_doc/{id})",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readDoc(idxFlags, args, 2)
			if err != nil {
				return err
			}
			status, resp, err := cl.do(http.MethodPut, docPath(args[0], "_doc", args[1], idxFlags), body, idxFlags.headers())
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), status, resp)
		},
	}
	versionFlags(indexCmd, &idxFlags)
	indexCmd.Flags().StringVarP(&idxFlags.file, "file", "f", "", `Archivo JSON ("-" = stdin)`)

	var crFlags docFlags
	createCmd := &cobra.Command{
		Use:   "create <index> [id] [json]",
		Short: "Crea un documento; falla si ya existe. Sin id lo genera el servidor",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				method = http.MethodPost
				path   = docPath(args[0], "_doc", "", crFlags)
				pos    = 1
			)
			if len(args) >= 2 && (crFlags.file != "" || len(args) == 3) {
				method, path, pos = http.MethodPut, docPath(args[0], "_create", args[1], crFlags), 2
			}
			body, err := readDoc(crFlags, args, pos)
			if err != nil {
				return err
			}
			status, resp, err := cl.do(method, path, body, nil)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), status, resp)
		},
	}
	createCmd.Flags().StringVarP(&crFlags.file, "file", "f", "", `Archivo JSON ("-" = stdin)`)

	getCmd := &cobra.Command{
		Use:   "get <index> <id>",
		Short: "Lee un documento",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, resp, err := cl.do(http.MethodGet, docPath(args[0], "_doc", args[1], docFlags{}), nil, nil)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), status, resp)
		},
	}

	var delFlags docFlags
	deleteCmd := &cobra.Command{
		Use:   "delete <index> <id>",
		Short: "Borra un documento (deja tombstone versionado)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, resp, err := cl.do(http.MethodDelete, docPath(args[0], "_doc", args[1], delFlags), nil, delFlags.headers())
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), status, resp)
		},
	}
	versionFlags(deleteCmd, &delFlags)

	root.AddCommand(indexCmd, createCmd, getCmd, deleteCmd)
}
