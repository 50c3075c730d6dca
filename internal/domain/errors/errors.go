package errors

import (
	"errors"
	"fmt"
	"time"
)

type ErrInvalidTrigger struct {
	Kind   string
	Reason string
}

func (e *ErrInvalidTrigger) Error() string {
	return fmt.Sprintf("неверный триггер %s: %s", e.Kind, e.Reason)
}

func (e *ErrInvalidTrigger) Is(target error) bool {
	_, ok := target.(*ErrInvalidTrigger)
	return ok
}

type ErrDurationTooShort struct {
	Minutes int
}

func (e *ErrDurationTooShort) Error() string {
	return "минимальная длительность 1 минута"
}

func (e *ErrDurationTooShort) Is(target error) bool {
	_, ok := target.(*ErrDurationTooShort)
	return ok
}

type ErrDurationTooLong struct {
	Minutes int
}

func (e *ErrDurationTooLong) Error() string {
	return "максимальная длительность 24 часа"
}

func (e *ErrDurationTooLong) Is(target error) bool {
	_, ok := target.(*ErrDurationTooLong)
	return ok
}

type ErrInvalidRecurrence struct {
	Value string
	Kind  string
}

func (e *ErrInvalidRecurrence) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("повторение %q недоступно для напоминаний типа %s", e.Value, e.Kind)
	}

	return "неизвестный тип повторения: " + e.Value
}

type ErrInvalidDateTime struct {
	Value  string
	Reason string
}

func (e *ErrInvalidDateTime) Error() string {
	return fmt.Sprintf("неверная дата или время %q: %s", e.Value, e.Reason)
}

type ErrMissingRequiredField struct {
	FieldName string
}

func (e *ErrMissingRequiredField) Error() string {
	return fmt.Sprintf("отсутствует обязательное поле: %s", e.FieldName)
}

// IsValidation сообщает, относится ли ошибка к некорректному вводу пользователя.
func IsValidation(err error) bool {
	var (
		invalidTrigger    *ErrInvalidTrigger
		tooShort          *ErrDurationTooShort
		tooLong           *ErrDurationTooLong
		invalidRecurrence *ErrInvalidRecurrence
		invalidDateTime   *ErrInvalidDateTime
		missingField      *ErrMissingRequiredField
	)

	return errors.As(err, &invalidTrigger) ||
		errors.As(err, &tooShort) ||
		errors.As(err, &tooLong) ||
		errors.As(err, &invalidRecurrence) ||
		errors.As(err, &invalidDateTime) ||
		errors.As(err, &missingField)
}

type ErrReminderNotFound struct {
	ID string
}

func (e *ErrReminderNotFound) Error() string {
	return "напоминание не найдено: " + e.ID
}

func (e *ErrReminderNotFound) Is(target error) bool {
	_, ok := target.(*ErrReminderNotFound)
	return ok
}

type ErrNotOwner struct {
	ID     string
	UserID string
}

func (e *ErrNotOwner) Error() string {
	return fmt.Sprintf("пользователь %s не является владельцем напоминания %s", e.UserID, e.ID)
}

func (e *ErrNotOwner) Is(target error) bool {
	_, ok := target.(*ErrNotOwner)
	return ok
}

type ErrDelivery struct {
	Channel string
	Target  string
	Cause   error
}

func (e *ErrDelivery) Error() string {
	return fmt.Sprintf("ошибка доставки через %s (%s): %v", e.Channel, e.Target, e.Cause)
}

func (e *ErrDelivery) Unwrap() error {
	return e.Cause
}

func (e *ErrDelivery) Is(target error) bool {
	_, ok := target.(*ErrDelivery)
	return ok
}

type ErrClockSkew struct {
	Timezone string
	Cause    error
}

func (e *ErrClockSkew) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("не удалось определить смещение часового пояса %q", e.Timezone)
	}

	return fmt.Sprintf("не удалось определить смещение часового пояса %q: %v", e.Timezone, e.Cause)
}

func (e *ErrClockSkew) Unwrap() error {
	return e.Cause
}

func (e *ErrClockSkew) Is(target error) bool {
	_, ok := target.(*ErrClockSkew)
	return ok
}

type ErrRateLimited struct {
	UserID     string
	RetryAfter time.Duration
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("слишком много напоминаний, повторите через %s", e.RetryAfter.Round(time.Second))
}

type ErrUnknownCommand struct {
	Command string
}

func (e *ErrUnknownCommand) Error() string {
	return "неизвестная команда: " + e.Command
}

type ErrUnknownDBAccessType struct {
	AccessType string
}

func (e *ErrUnknownDBAccessType) Error() string {
	return fmt.Sprintf("неизвестный тип доступа к базе данных: %s", e.AccessType)
}

type ErrUnknownStorageType struct {
	StorageType string
}

func (e *ErrUnknownStorageType) Error() string {
	return fmt.Sprintf("неизвестный тип хранилища: %s", e.StorageType)
}

type ErrUnknownTransport struct {
	Transport string
}

func (e *ErrUnknownTransport) Error() string {
	return fmt.Sprintf("неизвестный транспорт: %s", e.Transport)
}

type ErrBuildSQLQuery struct {
	Operation string
	Cause     error
}

func (e *ErrBuildSQLQuery) Error() string {
	return fmt.Sprintf("ошибка при построении SQL запроса (%s): %v", e.Operation, e.Cause)
}

func (e *ErrBuildSQLQuery) Unwrap() error {
	return e.Cause
}

type ErrSQLExecution struct {
	Operation string
	Cause     error
}

func (e *ErrSQLExecution) Error() string {
	return fmt.Sprintf("ошибка при выполнении SQL запроса (%s): %v", e.Operation, e.Cause)
}

func (e *ErrSQLExecution) Unwrap() error {
	return e.Cause
}

type ErrSQLScan struct {
	Entity string
	Cause  error
}

func (e *ErrSQLScan) Error() string {
	return fmt.Sprintf("ошибка при чтении данных (%s): %v", e.Entity, e.Cause)
}

func (e *ErrSQLScan) Unwrap() error {
	return e.Cause
}

type ErrMissingEventType struct{}

func (e *ErrMissingEventType) Error() string {
	return "в событии отсутствует поле type"
}

type ErrUnsupportedEventType struct {
	Type string
}

func (e *ErrUnsupportedEventType) Error() string {
	return "неподдерживаемый тип события: " + e.Type
}

type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP ошибка: %d", e.StatusCode)
}
