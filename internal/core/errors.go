package core

// Error codes for domain errors surfaced to the originating connection.
const (
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeValidation   = "validation"
	ErrCodePolicy       = "policy"
	ErrCodeNotFound     = "not_found"
	ErrCodePersistence  = "persistence"
)

// User-facing error messages, kept verbatim from the product for client
// compatibility.
const (
	MsgMissingRoomID    = "ID de la salle manquant"
	MsgEmptyMessage     = "Message vide"
	MsgRoomNotFound     = "Salon introuvable"
	MsgUserBanned       = "Utilisateur banni"
	MsgMissingRecipient = "ID destinataire manquant"
	MsgUserNotFound     = "Utilisateur introuvable"
	MsgBlockedByYou     = "Vous avez bloqué cet utilisateur"
	MsgBlockedByOther   = "Vous êtes bloqué par cet utilisateur"
	MsgServerError      = "Erreur serveur"
)

// CoreError wraps a machine code and a human-readable message. Only the
// message crosses the wire; the code drives logging and tests.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
