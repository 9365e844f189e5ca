package models

// Profile users:<uid> 哈希，注册后不再修改
type Profile struct {
	UID        int64  `json:"uid" redis:"uid"`
	Email      string `json:"email" redis:"email"`
	FamilyName string `json:"family_name" redis:"family_name"`
	GivenName  string `json:"given_name" redis:"given_name"`
	Name       string `json:"name" redis:"name"`
	Locale     string `json:"locale" redis:"locale"`
	Picture    string `json:"picture" redis:"picture"`
}

// Fields 写入哈希的字段
func (p *Profile) Fields() map[string]interface{} {
	return map[string]interface{}{
		"uid":         p.UID,
		"email":       p.Email,
		"family_name": p.FamilyName,
		"given_name":  p.GivenName,
		"name":        p.Name,
		"locale":      p.Locale,
		"picture":     p.Picture,
	}
}

// Identity 上游OAuth校验后的身份断言
type Identity struct {
	Email      string
	Token      string
	FamilyName string
	GivenName  string
	Name       string
	Locale     string
	Picture    string
}

// Session <sid> 哈希，登出后字段被清空但key保留
type Session struct {
	Email string `redis:"email"`
	Token string `redis:"token"`
}

// ProfileSummary 个人主页头部信息
type ProfileSummary struct {
	Profile
	FollowingUIDs  []int64 `json:"following_uids"`
	NumOfFollowing int     `json:"num_of_following"`
	NumOfFollowers int     `json:"num_of_followers"`
}

// PersonView 用户列表中的一项，附带当前用户是否已关注
type PersonView struct {
	Profile
	Following bool `json:"following"`
}
