package versioning

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// VersionType selecciona la regla de comparación del gate.
type VersionType string

const (
	// Internal: la versión la asigna el store; el cliente opcionalmente envía
	// la versión que espera encontrar.
	Internal VersionType = "internal"
	// External: la versión la asigna el cliente y debe ser estrictamente mayor
	// a la almacenada.
	External VersionType = "external"
)

// MaxExternalVersion es el límite superior (exclusivo) para versiones externas.
const MaxExternalVersion int64 = math.MaxInt64

// NoVersion indica que la solicitud no trae versión.
const NoVersion int64 = 0

var (
	// ErrInvalidVersionType se retorna para un version_type desconocido o no soportado.
	ErrInvalidVersionType = errors.New("invalid version_type")
	// ErrInvalidVersion se retorna para valores de versión fuera de rango o ausentes.
	ErrInvalidVersion = errors.New("invalid version")
)

// ParseVersionType interpreta el parámetro version_type. Vacío => Internal.
func ParseVersionType(s string) (VersionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "internal":
		return Internal, nil
	case "external", "external_gt":
		return External, nil
	case "external_gte":
		// Permitiría dos escrituras exitosas con la misma versión.
		return "", fmt.Errorf("%w: version_type external_gte is not supported", ErrInvalidVersionType)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVersionType, s)
	}
}

// ParseVersion interpreta el parámetro version. Vacío => NoVersion.
// Un valor presente debe estar en [1, MaxExternalVersion): las versiones
// empiezan en 1, así que un 0 explícito nunca puede confundirse con ausencia.
func ParseVersion(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoVersion, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a valid integer", ErrInvalidVersion, s)
	}
	if v < 1 || v >= MaxExternalVersion {
		return 0, fmt.Errorf("%w: version must be in [1, %d), got %d", ErrInvalidVersion, MaxExternalVersion, v)
	}
	return v, nil
}

// State es la vista del registro actual que necesita el gate.
type State struct {
	// Exists es true si hay registro, vivo o tombstone.
	Exists  bool
	Deleted bool
	Version int64
}

// Live indica si hay un documento visible (no tombstone).
func (s State) Live() bool { return s.Exists && !s.Deleted }

// Request describe los parámetros de versionado de una escritura.
type Request struct {
	Version int64
	Type    VersionType
	// CreateOnly falla si existe un documento vivo (op_type=create).
	CreateOnly bool
	// MustExist falla si no hay documento vivo (If-Match: *).
	MustExist bool
}

// Decision es el resultado de una evaluación exitosa.
type Decision struct {
	Version int64
	// Created es true si no había documento vivo antes de la escritura.
	Created bool
}

// Validate verifica el rango de la versión según el tipo.
func (r Request) Validate() error {
	switch r.Type {
	case Internal, "":
		if r.Version < 0 {
			return fmt.Errorf("%w: version must be >= 0, got %d", ErrInvalidVersion, r.Version)
		}
	case External:
		if r.Version == NoVersion {
			return fmt.Errorf("%w: version is required for version_type %s", ErrInvalidVersion, r.Type)
		}
		if r.Version < 1 || r.Version >= MaxExternalVersion {
			return fmt.Errorf("%w: external version must be in [1, %d), got %d", ErrInvalidVersion, MaxExternalVersion, r.Version)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidVersionType, r.Type)
	}
	return nil
}

// Evaluate decide si la solicitud se acepta sobre el estado actual.
// namespace e id sólo se usan para construir el ConflictError.
func Evaluate(namespace, id string, cur State, req Request) (Decision, error) {
	if req.Type == "" {
		req.Type = Internal
	}
	if err := req.Validate(); err != nil {
		return Decision{}, err
	}

	live := cur.Live()
	if req.CreateOnly && live {
		return Decision{}, newConflict(namespace, id, cur.Version, req.Version, req.Type,
			fmt.Sprintf("document already exists (current version [%d])", cur.Version))
	}
	if req.MustExist && !live {
		return Decision{}, newConflict(namespace, id, cur.Version, req.Version, req.Type,
			"document does not exist")
	}

	if !cur.Exists {
		if req.Type == External {
			return Decision{Version: req.Version, Created: true}, nil
		}
		return Decision{Version: 1, Created: true}, nil
	}

	switch req.Type {
	case External:
		if req.Version <= cur.Version {
			return Decision{}, newConflict(namespace, id, cur.Version, req.Version, req.Type,
				fmt.Sprintf("current version [%d] is higher or equal to the one provided [%d]", cur.Version, req.Version))
		}
		return Decision{Version: req.Version, Created: !live}, nil
	default:
		if req.Version != NoVersion && req.Version != cur.Version {
			return Decision{}, newConflict(namespace, id, cur.Version, req.Version, req.Type,
				fmt.Sprintf("current version [%d] is different than the one provided [%d]", cur.Version, req.Version))
		}
		if cur.Version == math.MaxInt64 {
			return Decision{}, fmt.Errorf("%w: version overflow for [%s]", ErrInvalidVersion, id)
		}
		return Decision{Version: cur.Version + 1, Created: !live}, nil
	}
}
