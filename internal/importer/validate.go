package importer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"moncal/internal/calendar"
	"moncal/internal/model"
)

const (
	MaxTitleLength    = 50
	MaxTypeNameLength = 20
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidateEvent checks a manually entered event. It returns one message per
// problem; an empty slice means valid.
func ValidateEvent(in model.EventInput, catalog []model.EventType) []string {
	errs := validateDateTitle(in)
	return append(errs, validateTypeID(in.TypeID, catalog)...)
}

// ValidateEventUpdate checks an edited event. The type id is only checked
// when the edit changes it, so an event whose type was deleted can still be
// retitled or moved.
func ValidateEventUpdate(in model.EventInput, catalog []model.EventType, typeChanged bool) []string {
	errs := validateDateTitle(in)
	if typeChanged {
		errs = append(errs, validateTypeID(in.TypeID, catalog)...)
	}
	return errs
}

func validateDateTitle(in model.EventInput) []string {
	var errs []string

	switch {
	case in.Date == "":
		errs = append(errs, "날짜를 입력해주세요.")
	case !calendar.IsValidDate(in.Date):
		errs = append(errs, "올바른 날짜 형식을 입력해주세요. (YYYY-MM-DD)")
	}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		errs = append(errs, "일정 제목을 입력해주세요.")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		errs = append(errs, "일정 제목은 50자를 초과할 수 없습니다.")
	}
	return errs
}

func validateTypeID(id string, catalog []model.EventType) []string {
	if id == "" {
		return []string{"일정 유형을 선택해주세요."}
	}
	if _, ok := model.FindType(catalog, id); !ok {
		return []string{"선택한 일정 유형을 찾을 수 없습니다."}
	}
	return nil
}

// ValidateEventType checks a new or edited event type.
func ValidateEventType(in model.EventTypeInput) []string {
	var errs []string

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		errs = append(errs, "유형 이름을 입력해주세요.")
	case utf8.RuneCountInString(name) > MaxTypeNameLength:
		errs = append(errs, "유형 이름은 20자를 초과할 수 없습니다.")
	}

	switch {
	case in.Color == "":
		errs = append(errs, "색상을 선택해주세요.")
	case !hexColor.MatchString(in.Color):
		errs = append(errs, "올바른 색상 형식이 아닙니다.")
	}

	return errs
}

// ValidColor reports whether s is a #RRGGBB color.
func ValidColor(s string) bool {
	return hexColor.MatchString(s)
}
