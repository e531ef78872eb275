package errors

import "errors"

// Messages shown to the person running the audit.
const (
	MsgAuthFailed         = "Неверный логин/пароль или включена двухфакторная аутентификация."
	MsgNetwork            = "Проблемы с соединением. Повторите попытку позже"
	MsgMissingCredentials = "Нужно ввести логин и пароль"
	MsgNoChecksSelected   = "Нужно выбрать хотя бы один пункт для проверки"
	MsgFeatureLocked      = "Эта функция недоступна в бесплатной версии. Пожалуйста, приобретите полную версию приложения."
	MsgUpstreamFormat     = "Не удалось разобрать страницу электронного журнала. Возможно, сайт изменился."
	MsgRunInProgress      = "Проверка уже выполняется. Дождитесь её завершения."
	MsgUnexpected         = "Произошла непредвиденная ошибка"
)

// UserMessage maps an error to the text shown in the UI.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return MsgUnexpected
	}
	switch appErr.Type {
	case ErrTypeAuth:
		return MsgAuthFailed
	case ErrTypeNetwork:
		return MsgNetwork
	case ErrTypeUpstreamFormat:
		return MsgUpstreamFormat
	case ErrTypeFeatureLocked:
		return MsgFeatureLocked
	case ErrTypeConflict:
		return MsgRunInProgress
	case ErrTypeConfig, ErrTypeValidation:
		return appErr.Message
	default:
		return MsgUnexpected
	}
}
