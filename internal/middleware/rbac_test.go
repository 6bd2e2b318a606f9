package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Anushervon04/university-crm-final/internal/models"
)

func rbacRequest(t *testing.T, role models.UserRole, withClaims bool, roles ...models.UserRole) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/guarded", func(c *gin.Context) {
		if withClaims {
			c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1", Role: role})
		}
		c.Next()
	}, RequireRoles(roles...), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/guarded", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireRolesAllowsListedRoles(t *testing.T) {
	// The comment-create gate: dean, vice-dean and teacher may post.
	gate := []models.UserRole{models.RoleDean, models.RoleViceDean, models.RoleTeacher}

	for _, role := range gate {
		assert.Equal(t, http.StatusNoContent, rbacRequest(t, role, true, gate...), string(role))
	}
}

func TestRequireRolesRejectsUnlistedRole(t *testing.T) {
	gate := []models.UserRole{models.RoleDean, models.RoleViceDean, models.RoleTeacher}
	assert.Equal(t, http.StatusForbidden, rbacRequest(t, models.RoleAdmin, true, gate...))
}

func TestRequireRolesRejectsMissingClaims(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, rbacRequest(t, models.RoleDean, false, models.RoleDean))
}
