package shell

import (
	"fmt"
	"strconv"

	"github.com/aljce/umbrella/inode"
)

// Result is the outcome of dispatching one command line: Output goes
// to stdout, Warning goes to stderr without aborting the session (an
// unclean mount notice), matching the shell's non-terminating error
// policy for everything except a hard Err.
type Result struct {
	Output  string
	Warning string
}

// Dispatch runs one already-tokenized command line against the
// session. An unrecognized command name is reported as an error
// rather than shelled out to an external program; launching external
// programs is out of scope here.
func (s *Session) Dispatch(args []string) (Result, error) {
	if len(args) == 0 {
		return Result{}, nil
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "cd":
		if len(rest) != 1 {
			return Result{}, fmt.Errorf("cd: expected exactly one argument")
		}
		return Result{}, s.Cd(rest[0])
	case "pwd":
		return Result{Output: s.Cwd()}, nil
	case "status":
		return Result{Output: s.Status()}, nil
	case "newfs":
		return Result{}, dispatchNewfs(s, rest)
	case "mount":
		return dispatchMount(s, rest)
	case "unmount":
		return Result{}, s.Unmount()
	case "blockmap":
		out, err := s.Blockmap()
		return Result{Output: out}, err
	case "alloc_block":
		n, err := s.AllocBlock()
		if err != nil {
			return Result{}, err
		}
		return Result{Output: n.String()}, nil
	case "free_block":
		if len(rest) != 1 {
			return Result{}, fmt.Errorf("free_block: expected exactly one argument")
		}
		n, err := ParseBlockNumber(rest[0])
		if err != nil {
			return Result{}, err
		}
		return Result{}, s.FreeBlock(n)
	case "inode_map":
		out, err := s.InodeMap()
		return Result{Output: out}, err
	case "alloc_inode":
		if len(rest) != 1 {
			return Result{}, fmt.Errorf("alloc_inode: expected exactly one flag token")
		}
		flags, err := inode.ParseFlags(rest[0])
		if err != nil {
			return Result{}, err
		}
		idx, ok, err := s.AllocInode(flags)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, fmt.Errorf("no free inode")
		}
		return Result{Output: strconv.Itoa(idx)}, nil
	case "free_inode":
		if len(rest) != 1 {
			return Result{}, fmt.Errorf("free_inode: expected exactly one argument")
		}
		i, err := strconv.Atoi(rest[0])
		if err != nil {
			return Result{}, fmt.Errorf("free_inode: %q is not an inode number", rest[0])
		}
		return Result{}, s.FreeInode(i)
	case "exit":
		return Result{}, ErrExit
	default:
		return Result{}, fmt.Errorf("%s: command not found", cmd)
	}
}

// ErrExit signals the REPL that the session requested a clean exit.
var ErrExit = fmt.Errorf("exit")

func dispatchNewfs(s *Session, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("newfs: usage: newfs <file> <block_count> [<block_size>]")
	}
	count, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("newfs: %q is not a block count", args[1])
	}
	var size *uint16
	if len(args) == 3 {
		parsed, err := strconv.ParseUint(args[2], 10, 16)
		if err != nil {
			return fmt.Errorf("newfs: %q is not a block size", args[2])
		}
		v := uint16(parsed)
		size = &v
	}
	return s.Newfs(args[0], count, size)
}

func dispatchMount(s *Session, args []string) (Result, error) {
	if len(args) != 1 {
		return Result{}, fmt.Errorf("mount: usage: mount <file>")
	}
	clean, err := s.Mount(args[0])
	if err != nil {
		return Result{}, err
	}
	if !clean {
		return Result{Warning: "the filesystem was not properly unmounted"}, nil
	}
	return Result{}, nil
}
