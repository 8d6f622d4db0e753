// Package minio stores cells as objects on MinIO or any S3-compatible storage,
// using the MinIO client. The object layout matches package store/s3, so
// either backend can read the other's data.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	st := miniostore.NewStore(client, "my-bucket", "globdex/")
package minio
