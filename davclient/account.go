package davclient

import "strings"

// Kind selects the retrieval strategy for an account.
type Kind string

const (
	// KindDingTalk answers a time-ranged calendar-query on a URL built from
	// a fixed base path.
	KindDingTalk Kind = "dingtalk"
	// KindTencent lists collection members and fetches them with
	// calendar-multiget.
	KindTencent Kind = "tencent"
	// KindGeneric is any standards-compliant CalDAV server.
	KindGeneric Kind = "generic"
)

// UsernamePlaceholder is replaced by the account username in URL templates.
const UsernamePlaceholder = "{username}"

// Vendor returns the label used in diagnostic file names.
func (k Kind) Vendor() string {
	return string(k)
}

// Account identifies one remote calendar account. It is immutable once
// loaded.
type Account struct {
	Kind        Kind
	Name        string
	Username    string
	Password    string
	URLTemplate string
}

// URL resolves the discovery URL template for this account.
func (a Account) URL() string {
	return strings.ReplaceAll(a.URLTemplate, UsernamePlaceholder, a.Username)
}
