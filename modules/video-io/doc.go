// Package videoio provides sequential video file decoding and encoding using GStreamer.
//
// A FrameSource yields decoded frames in strict decode order as packed RGB
// bytes; a FrameSink accepts frames in display order and encodes them with a
// fixed fourcc into a container chosen by file extension. Output resolution
// and frame rate always equal the input's.
//
// # Quick Start
//
//	src, err := videoio.OpenFile(ctx, "input.mp4")
//	if err != nil {
//	    return err // wraps videoio.ErrOpen
//	}
//	defer src.Close()
//
//	sink, err := videoio.CreateFile("output.mp4", src.Descriptor(), videoio.SinkConfig{Fourcc: "mp4v"})
//	if err != nil {
//	    return err
//	}
//	defer sink.Close()
//
//	for {
//	    frame, err := src.Next(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err // wraps videoio.ErrDecode
//	    }
//	    if err := sink.Write(ctx, &frame); err != nil {
//	        return err // wraps videoio.ErrEncode
//	    }
//	}
//
// # Pipelines
//
// Decoding:
//
//	filesrc → decodebin → videoconvert → RGB capsfilter → appsink
//
// Encoding:
//
//	appsrc → videoconvert → encoder(fourcc) → muxer(extension) → filesink
//
// Supported fourcc codes are mp4v (MPEG-4 Part 2, default), avc1/h264 and
// mjpg. Requires the gstreamer1.0 runtime with the base, good and libav
// plugin sets.
package videoio
