// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/narc

/*
Package narc decodes and encodes NARC (Nitro ARChive) containers and exposes
their content through a path-addressable virtual file tree. An archive is an
ordered name-to-data mapping; the codec reproduces the exact on-disk layout
(allocation table, name table, raw data section, their padding and patched
length fields) across decode/encode round-trips.

# Reading

Decode an archive and read members:

	a, err := narc.Open("sound.narc")
	if err != nil {
	    return err
	}
	for name, data := range a.Files() {
	    // use name, data
	}

Decode from any seekable stream or a byte slice:

	a, err := narc.Decode(r)            // io.ReadSeeker
	a, err := narc.DecodeBytes(blob)    // []byte

A stream that does not start with the "NARC" magic fails with
ErrInvalidHeader; use errors.Is to detect it.

# Virtual filesystem

Wrap an archive in a file tree and work with slash-separated paths:

	fs := narc.NewFilesystem(a)
	fs.AddFile("maps/town/warp.bin", warp)
	data, ok := fs.LookupFile("maps/town/warp.bin")
	for name, data := range fs.Files("maps/town") {
	    // immediate file children only
	}
	fs.RemoveDirectory("maps", true)

A mutated tree flattens back into an encodable archive:

	if err := fs.Archive().EncodeFile("sound.narc"); err != nil {
	    return err
	}

# Writing

Encode an archive to a seekable stream, a file, or memory:

	err := a.Encode(w)                  // io.WriteSeeker
	err := a.EncodeFile("out.narc")
	blob, err := a.Bytes()

Build an archive from stream-oriented inputs, compressing selected members
(rules use github.com/woozymasta/pathrules):

	inputs := []narc.Input{
	    {Path: "scripts/main.bin", Open: func() (io.ReadCloser, error) {
	        return os.Open("src/main.bin")
	    }},
	}
	res, err := narc.BuildFile(ctx, "out.narc", inputs, narc.BuildOptions{
	    Compress: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "textures/**"},
	    },
	})
	_ = res.CompressedEntries

Compressed members are stored as a 4-byte original-size prefix followed by
an LZSS stream; CompressMember and DecompressMember expose the same form
directly.

# Extracting

Write members to a directory tree (parallel workers, traversal-safe paths):

	err := a.Extract(ctx, "out/", narc.ExtractOptions{
	    MaxWorkers: 4,
	    Rules: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "maps/**"},
	    },
	})

# Editing

Edit an archive file in one transaction with backup rotation:

	editor, err := narc.OpenEditor("sound.narc", narc.EditOptions{BackupKeep: 1})
	if err != nil {
	    return err
	}
	editor.Filesystem().AddFile("scripts/extra.bin", data)
	if err := editor.Commit(ctx); err != nil {
	    return err
	}
*/
package narc
