package models

import "time"

// TokenPair — пара токенов, выдаваемая при аутентификации/регистрации/ротации.
//
// Описание:
//   - AccessToken — короткоживущий JWT (type=access) для доступа к API;
//   - RefreshToken — долгоживущий JWT (type=refresh), одноразовый:
//     предъявление для ротации делает его недействительным;
//   - AccessExpiresAt — момент истечения access-токена (UTC).
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// ClientMeta — метаданные клиента на момент выпуска refresh-токена.
// Сохраняются в записи токена для управления сессиями по устройствам.
type ClientMeta struct {
	// DeviceInfo — User-Agent; усечётся до 255 символов при сохранении.
	DeviceInfo string
	// IP — адрес клиента, определённый транспортом.
	IP string
}
