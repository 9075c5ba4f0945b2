// Package dctdm implements a coefficient-preserving baseline JPEG codec and
// a DCT Difference Modulation (DCTDM) steganographic embedder/extractor
// built on top of it.
//
// Unlike image/jpeg, Decode stops at the coefficient plane: it does not
// dequantize or run an inverse DCT, and Encode re-emits whatever
// coefficients a Plane holds without re-deriving them from pixel data. This
// lets Embed and Extract modify AC coefficient differences and have those
// exact values round-trip through a save/load cycle, which is the one
// property a payload hidden in DCT coefficients actually depends on.
//
// Hide and Reveal compose the codec and the DCTDM engine into the common
// case: decode, embed or extract, optionally seal or open the payload with
// a Transform, re-encode.
package dctdm
