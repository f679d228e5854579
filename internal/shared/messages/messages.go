// Package messages holds the user-facing copy for the connector.
// Everything here is pt-BR; technical detail stays in server logs and
// never reaches these strings.
package messages

import (
	"errors"
	"fmt"

	"financefly/internal/domain/connect"
)

const (
	InvalidCredentials  = "Credenciais Pluggy inválidas. Verifique a configuração."
	AccessForbidden     = "Acesso negado pelo serviço Pluggy. Verifique suas permissões."
	RateLimited         = "Muitas tentativas de conexão. Aguarde alguns minutos e tente novamente."
	ProviderUnavailable = "Serviço Pluggy temporariamente indisponível. Tente novamente em alguns minutos."
	NetworkFailure      = "Erro de conexão com o serviço Pluggy. Verifique sua internet e tente novamente."
	InvalidResponse     = "Resposta inválida do serviço Pluggy. Tente novamente."
	StoreUnavailable    = "Erro ao salvar no banco. Tente novamente mais tarde."
	IncompleteData      = "itemId recebido, mas faltam nome e e-mail."
	InvalidForm         = "Preencha todos os campos corretamente."
	Unexpected          = "Erro inesperado ao gerar token de conexão. Tente novamente."

	LinkSaved         = "Conta conectada com sucesso!"
	LinkAlreadyExists = "Esta conta já estava conectada."

	RetryHint = "Tente novamente em alguns instantes. Se o problema persistir, entre em contato com o suporte."
)

// ForError maps a flow error to its localized user-facing message.
// Unknown errors get the generic fallback so raw provider responses or
// stack traces are never shown to the end user.
func ForError(err error) string {
	switch {
	case errors.Is(err, connect.ErrInvalidCredentials):
		return InvalidCredentials
	case errors.Is(err, connect.ErrForbidden):
		return AccessForbidden
	case errors.Is(err, connect.ErrRateLimited):
		return RateLimited
	case errors.Is(err, connect.ErrProviderUnavailable):
		return ProviderUnavailable
	case errors.Is(err, connect.ErrIncompleteData):
		return IncompleteData
	}

	var provErr *connect.ProviderError
	if errors.As(err, &provErr) {
		return fmt.Sprintf("Erro ao comunicar com o serviço Pluggy (código %d).", provErr.StatusCode)
	}
	var respErr *connect.InvalidResponseError
	if errors.As(err, &respErr) {
		return InvalidResponse
	}
	var netErr *connect.NetworkError
	if errors.As(err, &netErr) {
		return NetworkFailure
	}
	var storeErr *connect.StoreError
	if errors.As(err, &storeErr) {
		return StoreUnavailable
	}
	var valErr *connect.ValidationError
	if errors.As(err, &valErr) {
		return InvalidForm
	}

	return Unexpected
}
