// Command m4atag reads and writes Apple-style metadata on m4a/mp4 files.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	mp4 "github.com/tetsuo/m4atag"
)

func main() {
	app := &cli.App{
		Name:  "m4atag",
		Usage: "read and write iTunes-style metadata on m4a files",
		Commands: []*cli.Command{
			dumpCommand,
			getCommand,
			setCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var dumpCommand = &cli.Command{
	Name:      "dump",
	Usage:     "print the common tags set on a file",
	ArgsUsage: "<file.m4a>",
	Action: func(c *cli.Context) error {
		file, tag, err := openTag(c)
		if err != nil {
			return err
		}
		defer file.Close()
		printTag(tag)
		return nil
	},
}

var getCommand = &cli.Command{
	Name:      "get",
	Usage:     "print a single tag's value",
	ArgsUsage: "<file.m4a> <field>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() < 2 {
			return cli.Exit("usage: m4atag get <file.m4a> <field>", 1)
		}
		file, tag, err := openTag(c)
		if err != nil {
			return err
		}
		defer file.Close()
		v, err := fieldValue(tag, c.Args().Get(1))
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}

var setCommand = &cli.Command{
	Name:      "set",
	Usage:     "set a single tag's value and save",
	ArgsUsage: "<file.m4a> <field> <value>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() < 3 {
			return cli.Exit("usage: m4atag set <file.m4a> <field> <value>", 1)
		}
		path := c.Args().Get(0)
		mf, err := mp4.OpenFile(path)
		if err != nil {
			return err
		}
		f, err := mp4.OpenMp4File(mf)
		if err != nil {
			return err
		}
		if err := setField(f.Tag(), c.Args().Get(1), c.Args().Get(2)); err != nil {
			return err
		}
		return f.Save()
	},
}

func openTag(c *cli.Context) (*mp4.MediaFile, *mp4.AppleTag, error) {
	if c.Args().Len() < 1 {
		return nil, nil, cli.Exit("missing file argument", 1)
	}
	mf, err := mp4.OpenFile(c.Args().Get(0))
	if err != nil {
		return nil, nil, err
	}
	f, err := mp4.OpenMp4File(mf)
	if err != nil {
		return nil, nil, err
	}
	return mf, f.Tag(), nil
}

func printTag(t *mp4.AppleTag) {
	printField := func(name, v string) {
		if v != "" {
			fmt.Printf("%-18s %s\n", name+":", v)
		}
	}
	printField("title", t.Title())
	printField("album", t.Album())
	printField("artist", strings.Join(t.Artists(), "; "))
	printField("albumArtist", strings.Join(t.AlbumArtists(), "; "))
	printField("composer", strings.Join(t.Composers(), "; "))
	printField("genre", strings.Join(t.Genres(), "; "))
	printField("comment", t.Comment())
	printField("grouping", t.Grouping())
	printField("copyright", t.Copyright())
	printField("encoder", t.Encoder())
	if y := t.Year(); y != 0 {
		printField("year", strconv.Itoa(y))
	}
	if idx, total := t.Track(); idx != 0 || total != 0 {
		printField("track", fmt.Sprintf("%d/%d", idx, total))
	}
	if idx, total := t.Disk(); idx != 0 || total != 0 {
		printField("disk", fmt.Sprintf("%d/%d", idx, total))
	}
	if bpm := t.Tempo(); bpm != 0 {
		printField("tempo", strconv.Itoa(int(bpm)))
	}
	if t.Compilation() {
		printField("compilation", "true")
	}
	printField("conductor", t.Conductor())
	printField("musicBrainzTrackId", t.MusicBrainzTrackID())
	printField("isrc", t.ISRC())
}

// fieldValue reads a field by its dump-column name, for simple
// tag-at-a-time scripting.
func fieldValue(t *mp4.AppleTag, field string) (string, error) {
	switch strings.ToLower(field) {
	case "title":
		return t.Title(), nil
	case "album":
		return t.Album(), nil
	case "artist":
		return strings.Join(t.Artists(), "; "), nil
	case "albumartist":
		return strings.Join(t.AlbumArtists(), "; "), nil
	case "composer":
		return strings.Join(t.Composers(), "; "), nil
	case "genre":
		return strings.Join(t.Genres(), "; "), nil
	case "comment":
		return t.Comment(), nil
	case "year":
		return strconv.Itoa(t.Year()), nil
	case "conductor":
		return t.Conductor(), nil
	case "musicbrainztrackid":
		return t.MusicBrainzTrackID(), nil
	case "isrc":
		return t.ISRC(), nil
	default:
		return "", cli.Exit(fmt.Sprintf("unknown field %q", field), 1)
	}
}

func setField(t *mp4.AppleTag, field, value string) error {
	switch strings.ToLower(field) {
	case "title":
		t.SetTitle(value)
	case "album":
		t.SetAlbum(value)
	case "artist":
		t.SetArtists(splitSemicolon(value))
	case "albumartist":
		t.SetAlbumArtists(splitSemicolon(value))
	case "composer":
		t.SetComposers(splitSemicolon(value))
	case "genre":
		t.SetGenres(splitSemicolon(value))
	case "comment":
		t.SetComment(value)
	case "year":
		y, err := strconv.Atoi(value)
		if err != nil {
			return cli.Exit("year must be an integer", 1)
		}
		t.SetYear(y)
	case "conductor":
		t.SetConductor(value)
	case "musicbrainztrackid":
		t.SetMusicBrainzTrackID(value)
	case "isrc":
		t.SetISRC(value)
	default:
		return cli.Exit(fmt.Sprintf("unknown field %q", field), 1)
	}
	return nil
}

func splitSemicolon(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ";") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
