package services

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// AddressKeySeparator joins sorted addresses into an address key
const AddressKeySeparator = "|"

// DefaultHistoryKeyPrefix prefixes every history key
const DefaultHistoryKeyPrefix = "lighter_history_"

// AddressKey sorts a copy of the addresses and joins them. Input order never
// changes the result.
func AddressKey(addresses []string) string {
	sorted := make([]string, len(addresses))
	copy(sorted, addresses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessUTF16(sorted[i], sorted[j])
	})
	return strings.Join(sorted, AddressKeySeparator)
}

// Fingerprint derives the short storage identifier of an address set.
// It is a 31-multiplier rolling hash over UTF-16 code units with int32
// wraparound, rendered as the base-36 absolute value. Not collision resistant.
func Fingerprint(addresses []string) string {
	return hashKey(AddressKey(addresses))
}

// HistoryKey returns the store key of an address set
func HistoryKey(prefix string, addresses []string) string {
	return prefix + Fingerprint(addresses)
}

func hashKey(key string) string {
	var hash int32
	for _, unit := range utf16.Encode([]rune(key)) {
		hash = hash*31 + int32(unit)
	}

	abs := int64(hash)
	if abs < 0 {
		abs = -abs
	}
	return strconv.FormatInt(abs, 36)
}

// lessUTF16 orders strings by UTF-16 code units, which differs from byte
// order only for characters above U+FFFF.
func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}
