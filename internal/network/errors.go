package network

import "errors"

var (
	// ErrFailedToBind не удалось открыть локальный сокет
	ErrFailedToBind = errors.New("не удалось открыть сокет")
	// ErrFailedToConnect не удалось разрешить или подключиться к адресу сервера
	ErrFailedToConnect = errors.New("не удалось подключиться")
	// ErrTimeout рукопожатие не подтверждено за отведенное время
	ErrTimeout = errors.New("таймаут рукопожатия")
	// ErrInvalidChecksum контрольная сумма датаграммы не совпала
	ErrInvalidChecksum = errors.New("неверная контрольная сумма")
	ErrDecompress      = errors.New("ошибка распаковки")
	ErrSerialize       = errors.New("ошибка сериализации")
	ErrDeserialize     = errors.New("ошибка десериализации")
	// ErrTooLarge кадр не помещается в одну датаграмму
	ErrTooLarge = errors.New("сообщение превышает размер датаграммы")
	// ErrUnknownClient сервер не знает клиента с таким идентификатором
	ErrUnknownClient = errors.New("неизвестный клиент")
)
