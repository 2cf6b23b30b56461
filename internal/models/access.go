package models

// AccessTier represents the three publication viewing levels.
type AccessTier string

const (
	TierUniversity AccessTier = "university"
	TierDepartment AccessTier = "department"
	TierAuthor     AccessTier = "author"
)

// Valid reports whether the tier is one of the known levels.
func (t AccessTier) Valid() bool {
	switch t {
	case TierUniversity, TierDepartment, TierAuthor:
		return true
	}
	return false
}

// Label returns the human-readable name shown in the viewer header.
func (t AccessTier) Label() string {
	switch t {
	case TierUniversity:
		return "University Access"
	case TierDepartment:
		return "Department Access"
	case TierAuthor:
		return "Author Access"
	}
	return string(t)
}

// AccessGrant is the resolved, in-memory result of a successful tier
// authentication. It lives for the duration of a viewer session and carries
// the scoping identifiers used to restrict publication queries.
type AccessGrant struct {
	EmployeeID   int        `json:"employee_id"`
	Tier         AccessTier `json:"access_level"`
	TierLabel    string     `json:"access_level_label"`
	AuthorExists bool       `json:"author_exists"`
	AuthorName   string     `json:"author_name,omitempty"`
	Department   string     `json:"department,omitempty"`
}

// ScopeValue returns the identifier a scoped tier restricts queries by. The
// second return is false when the tier requires a scope the grant does not
// carry, which is a configuration error rather than an unscoped query.
func (g AccessGrant) ScopeValue() (string, bool) {
	switch g.Tier {
	case TierDepartment:
		return g.Department, g.Department != ""
	case TierAuthor:
		return g.AuthorName, g.AuthorName != ""
	}
	return "", true
}

// AuthenticateRequest holds the viewer login form fields. The employee ID
// arrives as a string because that is what the form submits; numeric
// validation happens in the access service before any network call.
type AuthenticateRequest struct {
	EmployeeID  string     `json:"employee_id" validate:"required"`
	AccessLevel AccessTier `json:"access_level" validate:"required"`
	Password    string     `json:"password" validate:"required"`
}

// AuthorBio is the enrichment payload the upstream author lookup returns.
type AuthorBio struct {
	AuthorName string `json:"author_name"`
	Department string `json:"department"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
