package repokit

// Binder binds a domain repo to a Queryer, usually the one of the current transaction
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc lets a plain function serve as a Binder
type BindFunc[T any] func(Queryer) T

// Bind calls the underlying function
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }
