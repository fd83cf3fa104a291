package gateway

import (
	"fmt"

	"github.com/dmitrijs2005/famwealth/internal/client/models"
	"github.com/dmitrijs2005/famwealth/internal/common"
)

// principalShape tags which field of the login response identified the user.
type principalShape int

const (
	shapeMissing principalShape = iota
	shapeUser                   // {"user": {"id", "email"}}
	shapeUserID                 // {"user_id": 7}
)

type loginResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	User         *models.Principal `json:"user"`
	UserID       *int64            `json:"user_id"`
}

func (r *loginResponse) shape() principalShape {
	switch {
	case r.User != nil:
		return shapeUser
	case r.UserID != nil:
		return shapeUserID
	default:
		return shapeMissing
	}
}

// principal normalizes either shape into one Principal. With only an id the
// email typed at login is used.
func (r *loginResponse) principal(loginEmail string) (models.Principal, error) {
	var p models.Principal

	switch r.shape() {
	case shapeUser:
		p = *r.User
	case shapeUserID:
		p = models.Principal{ID: *r.UserID, Email: loginEmail}
	default:
		return p, fmt.Errorf("%w: login response carries neither user nor user_id", common.ErrMalformedResponse)
	}

	if !p.Valid() {
		return models.Principal{}, fmt.Errorf("%w: login response has an incomplete principal", common.ErrMalformedResponse)
	}
	return p, nil
}
