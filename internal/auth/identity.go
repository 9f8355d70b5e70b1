package auth

import "context"

// Identity 由认证方解析出的调用者身份
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	ImageURL string `json:"imageUrl"`
}

// Authenticated 是否携带可用的用户 ID
func (i Identity) Authenticated() bool { return i.UserID != "" }

type ctxKey struct{}

// WithIdentity 将身份放入 context
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext 取出身份，未认证时返回零值
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.Authenticated()
}
