package validation

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinDisputeDescriptionLength = 10
	MaxDisputeDescriptionLength = 5000
	MaxReviewMessageLength      = 2000
	MaxWorklogDescriptionLength = 5000
	MaxWorklogFiles             = 20
	MaxFileNameLength           = 255
	MaxFileURLLength            = 1000

	// 7 суток — максимальная длительность одного ворклога, защита от опечаток.
	MaxWorklogDurationMs = 7 * 24 * 60 * 60 * 1000
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateDisputeDescription проверяет описание спора.
func ValidateDisputeDescription(description string) error {
	if err := ValidateNonEmpty("описание спора", description); err != nil {
		return err
	}
	return ValidateLength("описание спора", strings.TrimSpace(description),
		MinDisputeDescriptionLength, MaxDisputeDescriptionLength)
}

// ValidateWorklogDescription проверяет необязательное описание ворклога.
func ValidateWorklogDescription(description *string) error {
	if description == nil || *description == "" {
		return nil
	}
	return ValidateLength("описание ворклога", strings.TrimSpace(*description),
		0, MaxWorklogDescriptionLength)
}

// ValidateReviewMessage проверяет необязательный комментарий ревью.
func ValidateReviewMessage(message *string) error {
	if message == nil || *message == "" {
		return nil
	}
	return ValidateLength("комментарий ревью", strings.TrimSpace(*message),
		0, MaxReviewMessageLength)
}

// ValidateWorklogDuration проверяет длительность ворклога в миллисекундах.
func ValidateWorklogDuration(durationMs int64) error {
	if durationMs <= 0 {
		return fmt.Errorf("длительность ворклога должна быть положительной")
	}
	if durationMs > MaxWorklogDurationMs {
		return fmt.Errorf("длительность ворклога не может превышать 7 суток")
	}
	return nil
}

// ValidateWorklogFile проверяет метаданные файла-доказательства.
func ValidateWorklogFile(fileName, fileURL string) error {
	if err := ValidateNonEmpty("имя файла", fileName); err != nil {
		return err
	}
	if err := ValidateLength("имя файла", fileName, 0, MaxFileNameLength); err != nil {
		return err
	}
	if err := ValidateNonEmpty("ссылка на файл", fileURL); err != nil {
		return err
	}
	return ValidateLength("ссылка на файл", fileURL, 0, MaxFileURLLength)
}

// ValidateSplitPercentages проверяет проценты раздела средств спора.
// Проценты неотрицательны и в сумме дают ровно 100.
func ValidateSplitPercentages(clientPct, freelancerPct float64) error {
	if clientPct < 0 || freelancerPct < 0 {
		return fmt.Errorf("проценты раздела не могут быть отрицательными")
	}
	if math.Abs(clientPct+freelancerPct-100) > 1e-9 {
		return fmt.Errorf("проценты раздела должны в сумме давать 100")
	}
	return nil
}
