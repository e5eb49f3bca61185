// Package capture saves frames to disk and plays them back.
//
// A capture is a zstd compressed msgpack stream: a header with the format
// version followed by one Recording. Images are not stored; every image a
// frame references is recorded by the name the caller gives it and
// resolved again on replay.
//
//	err := capture.Write(file, frame, func(img *quads.Image) string {
//	    return names[img]
//	})
//
//	rec, err := capture.Read(file)
//	err = rec.Replay(frame, func(name string) *quads.Image {
//	    return images[name]
//	})
package capture
