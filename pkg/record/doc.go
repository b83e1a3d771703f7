// Package record maps typed model classes onto tables of a types.Store.
//
// A Model pairs a table with an attribute schema, validation rules and
// lifecycle hooks. Records move through the states New, Persisted, Dirty
// and Deleted:
//
//	users, _ := record.Define(store, "users", userSchema,
//	    record.Named("User"),
//	    record.Validates(validation.Presence("first_name")),
//	)
//	u, err := users.Create(ctx, map[string]any{"first_name": "John"})
//	u, err = users.FindBy(ctx, types.Filter{"first_name": "John"})
//	err = u.Update(ctx, map[string]any{"age": 26})
//	err = u.Delete(ctx)
//
// Finders return fresh instances on every call and never share state
// between calls. All and Where stream rows in identity key order, which for
// UUID v7 keys is creation order.
//
// Invalid input never reaches the store: Create, Save and Update return a
// *validation.FailedError carrying the Error Set and issue no write.
// Deleting a New or already Deleted record fails with types.ErrInvalidState
// without issuing a statement.
package record
