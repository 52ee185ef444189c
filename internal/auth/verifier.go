package auth

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/dropDatabas3/teamgate/internal/directory"
	"github.com/dropDatabas3/teamgate/internal/metrics"
	"github.com/dropDatabas3/teamgate/internal/security/password"
	"github.com/dropDatabas3/teamgate/internal/store/core"
)

// Credential es el payload parseado que entrega la capa de transporte.
// Qué campos aplican depende del provider.
type Credential struct {
	Username       string
	Secret         string
	InvitationCode string

	// Para external-provider-confirmed: la identidad ya verificada por el
	// colaborador de redirect.
	ExternalID  string
	Email       string
	DisplayName string
}

// Verifier verifica una credencial contra el backend correcto de su
// provider. La verificación nunca muta estado de Account/Team; el único
// side effect permitido es el bind contra el directorio.
type Verifier interface {
	Provider() Provider
	Verify(ctx context.Context, cred Credential) (*ExternalIdentity, error)
}

// DirectoryService es lo que el verifier necesita del adapter de
// directorio.
type DirectoryService interface {
	Verify(ctx context.Context, username, secret string) (*directory.Attributes, error)
}

// ───────────────────────── password ─────────────────────────

// PasswordVerifier valida username+secret contra el hash almacenado.
type PasswordVerifier struct {
	Store core.Repository
	Team  TeamSelector
}

func (v *PasswordVerifier) Provider() Provider { return ProviderPassword }

func (v *PasswordVerifier) Verify(ctx context.Context, cred Credential) (*ExternalIdentity, error) {
	acct, err := lookupByUsername(ctx, v.Store, v.Team, cred.Username)
	if err != nil {
		return nil, err
	}
	if acct == nil || acct.PasswordHash == nil || !password.Verify(cred.Secret, *acct.PasswordHash) {
		return nil, ErrAuthenticationFailed
	}
	return &ExternalIdentity{
		Provider:    ProviderPassword,
		ExternalID:  cred.Username,
		Username:    cred.Username,
		Email:       acct.Email,
		DisplayName: cred.Username,
	}, nil
}

// ───────────────────────── directory ─────────────────────────

// DirectoryVerifier delega en el adapter bind/search/bind.
type DirectoryVerifier struct {
	Dir DirectoryService
}

func (v *DirectoryVerifier) Provider() Provider { return ProviderDirectory }

func (v *DirectoryVerifier) Verify(ctx context.Context, cred Credential) (*ExternalIdentity, error) {
	start := time.Now()
	attrs, err := v.Dir.Verify(ctx, cred.Username, cred.Secret)
	metrics.DirectoryExchange.Observe(time.Since(start).Seconds())
	if err != nil {
		// *directory.AuthError fluye para que el caller loguee el detalle;
		// el mensaje al usuario es el genérico igual.
		return nil, err
	}
	return &ExternalIdentity{
		Provider:    ProviderDirectory,
		ExternalID:  ServiceIDFromDN(attrs.DN),
		Username:    cred.Username,
		Email:       attrs.Email,
		DisplayName: attrs.DisplayName,
		Raw:         map[string]string{RawDirectoryDN: attrs.DN},
	}, nil
}

// ServiceIDFromDN deriva el service id estable desde el distinguished name.
// md5 acá es derivación de identificador, no protección de un secreto.
func ServiceIDFromDN(dn string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(dn))))
	return hex.EncodeToString(sum[:])
}

// ───────────────────────── invitation ─────────────────────────

// InvitationVerifier valida el código de invitación vigente y después la
// credencial como el provider password. Un username desconocido es un alta
// nueva: el hash viaja en Raw para que el reconciler cree la cuenta.
type InvitationVerifier struct {
	Store core.Repository
	Team  TeamSelector
	// Code es el código activo configurado.
	Code string
	// HashParams para el hash del alta nueva.
	HashParams password.Params
}

func (v *InvitationVerifier) Provider() Provider { return ProviderInvitation }

func (v *InvitationVerifier) Verify(ctx context.Context, cred Credential) (*ExternalIdentity, error) {
	// El código se valida primero, independiente de la credencial.
	if v.Code == "" ||
		subtle.ConstantTimeCompare([]byte(cred.InvitationCode), []byte(v.Code)) != 1 {
		return nil, ErrInvalidInvitation
	}
	if strings.TrimSpace(cred.Username) == "" || cred.Secret == "" {
		return nil, ErrAuthenticationFailed
	}

	ident := &ExternalIdentity{
		Provider:    ProviderInvitation,
		ExternalID:  cred.Username,
		Username:    cred.Username,
		DisplayName: cred.Username,
	}

	acct, err := lookupByUsername(ctx, v.Store, v.Team, cred.Username)
	if err != nil {
		return nil, err
	}
	switch {
	case acct == nil:
		// Alta por self-registration: el reconciler crea la cuenta con
		// este hash.
		phc, err := password.Hash(v.HashParams, cred.Secret)
		if err != nil {
			return nil, err
		}
		ident.Raw = map[string]string{RawPasswordHash: phc}
	case acct.Service != "" && acct.Service != ProviderInvitation.String():
		// Cuenta de otro provider: dejar que la reconciliación falle con
		// ProviderMismatch en vez de enmascararlo como credencial mala.
	default:
		if acct.PasswordHash == nil || !password.Verify(cred.Secret, *acct.PasswordHash) {
			return nil, ErrAuthenticationFailed
		}
		ident.Email = acct.Email
	}
	return ident, nil
}

// ───────────────────────── external ─────────────────────────

// ExternalVerifier no verifica nada localmente: la identidad ya fue
// confirmada por el intercambio de redirect externo y llega como input
// confiable (el chequeo del state token es del colaborador).
type ExternalVerifier struct {
	Name string
}

func (v *ExternalVerifier) Provider() Provider { return ExternalProvider(v.Name) }

func (v *ExternalVerifier) Verify(_ context.Context, cred Credential) (*ExternalIdentity, error) {
	if strings.TrimSpace(cred.ExternalID) == "" {
		return nil, ErrAuthenticationFailed
	}
	name := cred.DisplayName
	if name == "" {
		name = cred.Email
	}
	return &ExternalIdentity{
		Provider:    v.Provider(),
		ExternalID:  cred.ExternalID,
		Email:       cred.Email,
		DisplayName: name,
	}, nil
}

// lookupByUsername resuelve el team sin crearlo y busca la cuenta. Team
// inexistente o ErrNotFound se normalizan a (nil, nil); otros errores de
// store sí propagan (son inesperados).
func lookupByUsername(ctx context.Context, store core.Repository, sel TeamSelector, username string) (*core.Account, error) {
	teamID := sel.ID
	if teamID == "" {
		team, err := store.GetTeamByName(ctx, sel.Name)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		teamID = team.ID
	}
	acct, err := store.FindAccountByUsername(ctx, teamID, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return acct, nil
}
