package middlewares

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/http/errors"
)

// RequireLeader asegura que las escrituras sólo se ejecuten en el nodo líder.
// Comportamiento:
//   - Si no hay cluster o el nodo es líder => pasa.
//   - Si es follower => 503 NOT_LEADER con header X-Leader.
//   - Si el cliente solicita redirect (X-Leader-Redirect: 1 o query leader_redirect=1)
//     y hay una URL http(s) válida configurada para el líder => responde 307.
func RequireLeader(clusterRepo repository.ClusterRepository, leaderRedirects map[string]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isWrite(r.Method) || clusterRepo == nil {
				next.ServeHTTP(w, r)
				return
			}

			isLeader, err := clusterRepo.IsLeader(r.Context())
			if err != nil || isLeader {
				next.ServeHTTP(w, r)
				return
			}

			leaderID, _ := clusterRepo.GetLeaderID(r.Context())
			if leaderID != "" {
				w.Header().Set("X-Leader", leaderID)
			}

			wantsRedirect := strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Leader-Redirect")), "1") ||
				strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("leader_redirect")), "1")

			if wantsRedirect && leaderID != "" {
				if base, ok := redirectBase(leaderRedirects[leaderID]); ok {
					w.Header().Set("X-Leader-URL", base)
					w.Header().Set("Location", base+r.URL.RequestURI())
					w.WriteHeader(http.StatusTemporaryRedirect)
					return
				}
			}

			errors.WriteError(w, errors.ErrNotLeader.WithDetail("this node is a follower, leader: "+leaderID))
		})
	}
}

// redirectBase valida la URL configurada del líder: http(s), con host y sin query.
func redirectBase(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return strings.TrimRight(u.String(), "/"), true
}
