// Package s3 implements objectstore.Store on Amazon S3 with the AWS SDK v2.
//
// Requests are validated before they are sent and SDK errors are mapped onto
// the module's sentinel errors, so callers can classify failures with
// errors.Is regardless of backend.
//
// Example usage:
//
//	store, err := s3.New(ctx,
//	    s3.WithRegion("eu-west-2"),
//	    s3.WithMaxRetries(3),
//	)
//	if err != nil {
//	    return err
//	}
//
//	objects, err := store.List(ctx, "my-bucket", "Darts.v2i.yolov11/train/images/",
//	    objectstore.WithMaxKeys(1))
package s3
