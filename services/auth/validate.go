package auth

import "regexp"

var (
	regNumberPattern = regexp.MustCompile(`^20\d{5}$`)
	phonePattern     = regexp.MustCompile(`^\+\d{1,3}\d{9,15}$`)
)

func validRegNumber(s string) bool { return regNumberPattern.MatchString(s) }
func validPhoneNumber(s string) bool { return phonePattern.MatchString(s) }
