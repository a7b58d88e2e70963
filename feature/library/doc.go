// Package library is a small lending-library domain used as demo seed data.
//
// The models are ordinary GORM models. Their relations exercise every shape
// the seeder understands: a category with a pointer collection of books, an
// author owning books by value, a member and profile referencing each other,
// and a loan with a non-conventional key and two references to Member.
//
// NewCatalog builds the graph with all foreign keys left zero; registering it
// with a seeder fills them in.
//
// # Usage
//
//	s, _ := seeder.New(reconcile.PolicyMerge)
//	catalog, err := library.Register(s)
package library
