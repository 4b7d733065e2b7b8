// Package imgmat provides a dense image matrix with an explicit per-channel
// depth and channel count.
//
// Type tags follow the OpenCV convention: the depth occupies the low three
// bits and the channel count minus one the bits above, so MakeType(U8, 3)
// is the familiar 8UC3.
//
// A Mat stores rows Step bytes apart. Step may exceed the packed row width
// when a Mat views a region of a larger buffer; use Row to read pixel data
// without the padding.
package imgmat
