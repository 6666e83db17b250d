package shared

import (
	"encoding/json"
	"strings"
)

// sessionKeyViewer stores the viewer profile for the browsing session.
const sessionKeyViewer = "viewer"

// CargoGerente is the role that sees every dashboard record unfiltered.
const CargoGerente = "gerente"

// Viewer is the profile the authenticating frontend registers for the
// session: the viewer's role and the client accounts they may see.
// Authentication itself happens outside this service.
type Viewer struct {
	Cargo    string  `json:"cargo"`
	Clientes []int64 `json:"clientes"`
}

// IsGerente reports whether the viewer holds the manager role.
func (v Viewer) IsGerente() bool {
	return strings.EqualFold(v.Cargo, CargoGerente)
}

// IsSporadic reports whether the viewer belongs to the sporadic client
// account identified by sporadicID.
func (v Viewer) IsSporadic(sporadicID int64) bool {
	for _, id := range v.Clientes {
		if id == sporadicID {
			return true
		}
	}
	return false
}

// HasCliente reports whether clienteID is among the viewer's accounts.
func (v Viewer) HasCliente(clienteID int64) bool {
	for _, id := range v.Clientes {
		if id == clienteID {
			return true
		}
	}
	return false
}

// SaveViewer persists the viewer profile in the session.
func SaveViewer(sess *Session, v Viewer) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sess.Set(sessionKeyViewer, string(data))
	return nil
}

// ViewerFromSession reads the viewer profile; an absent or unreadable
// profile yields the zero viewer (no role, no clients).
func ViewerFromSession(sess *Session) Viewer {
	if sess == nil {
		return Viewer{}
	}
	raw := sess.Get(sessionKeyViewer)
	if raw == "" {
		return Viewer{}
	}
	var v Viewer
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Viewer{}
	}
	return v
}
