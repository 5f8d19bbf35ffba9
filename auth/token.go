package auth

import (
	"consult-chat/domain"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"
)

// DefaultStaffRoles are the role claims that open the staff chat panel.
var DefaultStaffRoles = []string{"STAFF", "PHARMACIST", "ADMIN"}

// Claims is the subset of the identity provider token the client reads.
// The signature is checked by the broker, never here.
type Claims struct {
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	Name  string   `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AllRoles merges the single role claim with the roles array.
func (c *Claims) AllRoles() []string {
	roles := lo.Map(c.Roles, func(r string, _ int) string { return strings.TrimPrefix(strings.ToUpper(r), "ROLE_") })
	if c.Role != "" {
		roles = append(roles, strings.TrimPrefix(strings.ToUpper(c.Role), "ROLE_"))
	}
	return lo.Uniq(lo.Compact(roles))
}

// ParseClaims decodes the token payload without verifying it.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// RoleFromToken maps the token role claims onto a chat role. Opaque tokens
// and tokens without a staff role yield RoleCustomer.
func RoleFromToken(token string, staffRoles []string) domain.Role {
	claims, err := ParseClaims(token)
	if err != nil {
		return domain.RoleCustomer
	}
	if len(staffRoles) == 0 {
		staffRoles = DefaultStaffRoles
	}
	isStaff := lo.ContainsBy(claims.AllRoles(), func(role string) bool {
		return lo.ContainsBy(staffRoles, func(staff string) bool { return strings.EqualFold(staff, role) })
	})
	if isStaff {
		return domain.RoleStaff
	}
	return domain.RoleCustomer
}

// DisplayName prefers the name claim, then the subject.
func DisplayName(token string) string {
	claims, err := ParseClaims(token)
	if err != nil {
		return ""
	}
	if claims.Name != "" {
		return claims.Name
	}
	return claims.Subject
}
