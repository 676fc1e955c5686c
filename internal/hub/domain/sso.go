package domain

// SSOClaims is the normalized identity extracted from a verified IdP ID
// token. ADFS deployments are inconsistent about which claims they emit, so
// the extraction layer applies fallbacks before building this.
type SSOClaims struct {
	Subject    string // sub, falling back to oid then upn
	Email      string // email, falling back to upn then unique_name
	Name       string // display name, falling back to given_name
	FirstName  string
	LastName   string
	MiddleName string
	Department string
	JobTitle   string // jobTitle, falling back to title
	Groups     []string
}
