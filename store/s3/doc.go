// Package s3 stores cells as S3 objects.
//
// # Layout
//
// Each cell is one object at <prefix>/<hex(row)>/<hex(column)>. Lowercase hex
// preserves unsigned byte order, so listing a row returns its columns in
// ascending order.
//
// # Usage
//
//	st, err := s3.New(ctx, "my-bucket", s3.WithPrefix("globdex/"))
//
// Values are written through the transfer manager, so large segment images are
// uploaded in parts.
package s3
