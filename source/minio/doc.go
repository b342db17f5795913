// Package minio provides a source.Source backed by the MinIO client.
//
// MinIO is an S3-compatible object store. The official MinIO Go client works
// with MinIO and other S3-compatible systems such as Ceph, SeaweedFS and
// Garage without pulling in the AWS SDK.
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
//	src, err := miniosource.Open(ctx, client, "datasets", "train.bin")
package minio
