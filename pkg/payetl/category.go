package payetl

import (
	"fmt"
	"path"
	"strings"
)

// Category identifies one of the four logical source files a run needs.
type Category int

const (
	CategoryProvider1 Category = iota // ccprov1_*.xls(x)
	CategoryProvider2                 // ccprov2_*.xls(x)
	CategoryStaff                     // ccstaff_*.xls(x)
	CategoryLabor                     // Labor_Summary_by_Employee_Retool_Annual_Export_*.xls(x)
)

// excelExtensions are matched case-insensitively against the key suffix.
var excelExtensions = []string{".xls", ".xlsx"}

// AllCategories returns every category in fixed processing order.
func AllCategories() []Category {
	return []Category{CategoryProvider1, CategoryProvider2, CategoryStaff, CategoryLabor}
}

// String returns the category name used in results and log lines.
func (c Category) String() string {
	switch c {
	case CategoryProvider1:
		return "ccprov1"
	case CategoryProvider2:
		return "ccprov2"
	case CategoryStaff:
		return "ccstaff"
	case CategoryLabor:
		return "labor"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Prefix returns the filename prefix that identifies the category.
func (c Category) Prefix() string {
	switch c {
	case CategoryProvider1:
		return "ccprov1_"
	case CategoryProvider2:
		return "ccprov2_"
	case CategoryStaff:
		return "ccstaff_"
	case CategoryLabor:
		return "Labor_Summary_by_Employee_Retool_Annual_Export_"
	default:
		return ""
	}
}

// Matches reports whether an object key belongs to the category.
// The basename must start with the category prefix and the key must end
// with .xls or .xlsx; both comparisons ignore case.
func (c Category) Matches(key string) bool {
	prefix := c.Prefix()
	if prefix == "" {
		return false
	}
	base := strings.ToLower(path.Base(key))
	if !strings.HasPrefix(base, strings.ToLower(prefix)) {
		return false
	}
	lowerKey := strings.ToLower(key)
	for _, ext := range excelExtensions {
		if strings.HasSuffix(lowerKey, ext) {
			return true
		}
	}
	return false
}

// ExpectedKey builds the exact key a drop for the given date is expected to use.
func (c Category) ExpectedKey(keyPrefix, date string) string {
	return keyPrefix + c.Prefix() + date + ".xlsx"
}
