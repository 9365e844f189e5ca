package services

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/twitterlite/twitterlite/internal/models"
)

// IdentityClaims OAuth网关签发的身份断言
type IdentityClaims struct {
	Email       string `json:"email"`
	GivenName   string `json:"given_name"`
	FamilyName  string `json:"family_name"`
	Name        string `json:"name"`
	Locale      string `json:"locale"`
	Picture     string `json:"picture"`
	AccessToken string `json:"access_token"`
	jwt.RegisteredClaims
}

type IdentityVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewIdentityVerifier(secret, issuer, audience string) *IdentityVerifier {
	return &IdentityVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

// Verify 校验签名与声明，返回身份；失败统一包装为 ErrUnauthorized
func (v *IdentityVerifier) Verify(assertion string) (*models.Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(assertion, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, ErrUnauthorized
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: assertion has no email", ErrUnauthorized)
	}

	accessToken := claims.AccessToken
	if accessToken == "" {
		accessToken = assertion
	}

	return &models.Identity{
		Email:      claims.Email,
		Token:      accessToken,
		FamilyName: claims.FamilyName,
		GivenName:  claims.GivenName,
		Name:       claims.Name,
		Locale:     claims.Locale,
		Picture:    claims.Picture,
	}, nil
}

// Sign 生成身份断言，供本地开发和测试使用
func (v *IdentityVerifier) Sign(claims *IdentityClaims) (string, error) {
	if claims.Issuer == "" {
		claims.Issuer = v.issuer
	}
	if v.audience != "" && len(claims.Audience) == 0 {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
