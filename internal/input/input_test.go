package input

import "testing"

func feedString(d *Decoder, s string) []Command {
	var out []Command
	for i := 0; i < len(s); i++ {
		cmd := d.Feed(s[i])
		if cmd.Kind != None {
			out = append(out, cmd)
		}
	}
	return out
}

func TestSingleByteCommands(t *testing.T) {
	cases := map[byte]Kind{
		'+': SpeedDouble,
		'-': SpeedHalve,
		'1': SpeedReset,
		'p': TogglePause,
		'q': Quit,
		'f': JumpFileNext,
		'd': JumpFilePrev,
		'c': JumpClearNext,
		'x': JumpClearPrev,
	}
	for b, want := range cases {
		d := NewDecoder()
		cmd := d.Feed(b)
		if cmd.Kind != want {
			t.Errorf("byte %q -> %v, want %v", b, cmd.Kind, want)
		}
	}
}

func TestUnknownByte(t *testing.T) {
	d := NewDecoder()
	cmd := d.Feed('z')
	if cmd.Kind != Unknown {
		t.Errorf("got %v, want Unknown", cmd.Kind)
	}
}

func TestArrowSeeksCSI(t *testing.T) {
	cases := []struct {
		seq  string
		want float64
	}{
		{"\x1b[D", -JumpBase},
		{"\x1b[C", JumpBase},
		{"\x1b[A", -JumpBase * JumpScale},
		{"\x1b[B", JumpBase * JumpScale},
		{"\x1b[5", -JumpBase * JumpScale * JumpScale},
		{"\x1b[6", JumpBase * JumpScale * JumpScale},
	}
	for _, c := range cases {
		d := NewDecoder()
		cmds := feedString(d, c.seq)
		if len(cmds) != 1 || cmds[0].Kind != SeekRelative {
			t.Fatalf("seq %q -> %+v, want one SeekRelative", c.seq, cmds)
		}
		if cmds[0].Seconds != c.want {
			t.Errorf("seq %q seconds = %v, want %v", c.seq, cmds[0].Seconds, c.want)
		}
	}
}

func TestArrowAcceptsSS3Variant(t *testing.T) {
	d := NewDecoder()
	cmds := feedString(d, "\x1bOD")
	if len(cmds) != 1 || cmds[0].Kind != SeekRelative || cmds[0].Seconds != -JumpBase {
		t.Fatalf("SS3 left arrow -> %+v", cmds)
	}
}

func TestHomeAndEnd(t *testing.T) {
	d := NewDecoder()
	cmds := feedString(d, "\x1b[H")
	if len(cmds) != 1 || cmds[0].Kind != SeekStart {
		t.Fatalf("Home -> %+v, want SeekStart", cmds)
	}
	d = NewDecoder()
	cmds = feedString(d, "\x1b[F")
	if len(cmds) != 1 || cmds[0].Kind != SeekEnd {
		t.Fatalf("End -> %+v, want SeekEnd", cmds)
	}
}

func TestUnknownEscapeSequenceIsIgnored(t *testing.T) {
	d := NewDecoder()
	cmds := feedString(d, "\x1b[Z")
	if len(cmds) != 1 || cmds[0].Kind != Unknown {
		t.Fatalf("got %+v, want single Unknown", cmds)
	}
}

func TestMalformedEscapeResets(t *testing.T) {
	d := NewDecoder()
	// ESC followed by something that's neither '[' nor 'O'.
	cmd1 := d.Feed(0x1B)
	if cmd1.Kind != None {
		t.Fatalf("ESC alone should be None, got %v", cmd1.Kind)
	}
	cmd2 := d.Feed('q')
	if cmd2.Kind != Unknown {
		t.Fatalf("ESC q should be Unknown, got %v", cmd2.Kind)
	}
	// Decoder should be back to idle and treat the next byte normally.
	cmd3 := d.Feed('q')
	if cmd3.Kind != Quit {
		t.Fatalf("after reset, 'q' should decode as Quit, got %v", cmd3.Kind)
	}
}
