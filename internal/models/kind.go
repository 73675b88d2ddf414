package models

import (
	"fmt"
	"strings"
)

// Kind names one of the backend entity collections.
type Kind string

const (
	KindAccount Kind = "account"
	KindContact Kind = "contact"
	KindLoan    Kind = "loan"
	KindAsset   Kind = "asset"
	KindCase    Kind = "case"
)

var Kinds = []Kind{KindAccount, KindContact, KindLoan, KindAsset, KindCase}

// ParseKind accepts the singular or plural name in any case.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		if s == string(k) || s == k.Collection() {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// Collection is the backend path segment and the front-end URL prefix.
func (k Kind) Collection() string { return string(k) + "s" }

// FKField is the foreign-key field other entities use to point at k.
func (k Kind) FKField() string { return string(k) + "_id" }

func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if k == v {
			return true
		}
	}
	return false
}
