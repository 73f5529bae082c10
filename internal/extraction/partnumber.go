package extraction

import (
	"path/filepath"
	"regexp"
	"strings"

	"micromes/pkg/contracts/domain"
)

var partNumberPattern = regexp.MustCompile(`\d{5}-\d{4}-\d{3}`)

// ResolvePartNumber picks the part number of a workbook. The trimmed cell
// value wins when non-empty, then the first part-number token of the file
// name, then the Unknown sentinel.
func ResolvePartNumber(cell, fileName string) domain.PartNumber {
	if v := strings.TrimSpace(cell); v != "" {
		return domain.PartNumber{Value: v, Source: domain.PartNumberFromCell}
	}
	if token := partNumberPattern.FindString(filepath.Base(fileName)); token != "" {
		return domain.PartNumber{Value: token, Source: domain.PartNumberFromFilename}
	}
	return domain.PartNumber{Value: domain.UnknownPartNumber, Source: domain.PartNumberUnknown}
}
