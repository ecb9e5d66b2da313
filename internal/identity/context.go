package identity

import "context"

type identityContextKey struct{}

type studentsContextKey struct{}

// ContextWith stores the identity and its linked students in context.
func ContextWith(ctx context.Context, ident *Identity, students []Student) context.Context {
	ctx = context.WithValue(ctx, identityContextKey{}, ident)
	return context.WithValue(ctx, studentsContextKey{}, students)
}

// FromContext extracts the identity from context. When nothing was stored
// the anonymous sentinel is returned, never nil.
func FromContext(ctx context.Context) *Identity {
	ident, _ := ctx.Value(identityContextKey{}).(*Identity)
	if ident == nil {
		return Anonymous()
	}
	return ident
}

// StudentsFromContext extracts the linked students, if any.
func StudentsFromContext(ctx context.Context) []Student {
	students, _ := ctx.Value(studentsContextKey{}).([]Student)
	return students
}
