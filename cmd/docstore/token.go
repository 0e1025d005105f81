package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	jwtx "github.com/dropDatabas3/docstore/internal/jwt"
)

func newTokenCmd() *cobra.Command {
	var (
		secret  = envOr("AUTH_JWT_SECRET", "")
		issuer  = envOr("AUTH_JWT_ISSUER", "docstore")
		subject string
		scopes  string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Emite un access token HS256 para la API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(secret) == "" {
				return errors.New("falta secreto (flag --secret o env AUTH_JWT_SECRET)")
			}
			if strings.TrimSpace(subject) == "" {
				return errors.New("--sub es requerido")
			}
			iss := jwtx.NewIssuer(issuer, []byte(secret))
			tok, exp, err := iss.IssueAccess(subject, strings.Fields(strings.ReplaceAll(scopes, ",", " ")), ttl)
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(map[string]any{
				"access_token": tok,
				"token_type":   "Bearer",
				"expires_at":   exp.Format(time.RFC3339),
			}, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", secret, "Secreto HS256 (env AUTH_JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "iss", issuer, "Issuer (env AUTH_JWT_ISSUER)")
	cmd.Flags().StringVar(&subject, "sub", "", "Subject del token")
	cmd.Flags().StringVar(&scopes, "scopes", jwtx.ScopeRead+" "+jwtx.ScopeWrite, "Scopes separados por espacio o coma")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Duración del token")
	return cmd
}
