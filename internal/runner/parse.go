package runner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"ammEngine/internal/model"
)

const maxScriptLine = 1 << 20

// ReadScript loads a JSONL instruction script. Blank lines and lines starting
// with '#' keep their line number but hold no instruction.
func ReadScript(path string) ([]*model.Instruction, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer file.Close()

	var lines []*model.Instruction
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScriptLine)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			lines = append(lines, nil)
			continue
		}
		var instr model.Instruction
		if err := json.Unmarshal([]byte(text), &instr); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		lines = append(lines, &instr)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan script: %w", err)
	}
	return lines, nil
}

// ParseHash converts a 0x-hex identifier of up to 32 bytes into a
// left-padded common.Hash.
func ParseHash(input string) (common.Hash, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Hash{}, fmt.Errorf("empty identifier")
	}
	if len(input)%2 == 1 && strings.HasPrefix(input, "0x") {
		input = "0x0" + input[2:]
	}
	data, err := hexutil.Decode(input)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid identifier %s: %w", input, err)
	}
	if len(data) > common.HashLength {
		return common.Hash{}, fmt.Errorf("identifier longer than 32 bytes: %s", input)
	}
	return common.BytesToHash(data), nil
}

// parseOptionalHash returns the zero hash for an empty input.
func parseOptionalHash(input string) (common.Hash, error) {
	if strings.TrimSpace(input) == "" {
		return common.Hash{}, nil
	}
	return ParseHash(input)
}

// ParseAmount parses a base-10 uint64 amount. Empty means zero.
func ParseAmount(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(input, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %s: %w", input, err)
	}
	return v, nil
}

// hashParser collects the first parse error so instruction decoding reads
// as a flat list of fields.
type hashParser struct {
	err error
}

func (p *hashParser) hash(field, input string) common.Hash {
	if p.err != nil {
		return common.Hash{}
	}
	h, err := ParseHash(input)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", field, err)
	}
	return h
}

func (p *hashParser) optional(field, input string) common.Hash {
	if p.err != nil {
		return common.Hash{}
	}
	h, err := parseOptionalHash(input)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", field, err)
	}
	return h
}

func (p *hashParser) amount(field, input string) uint64 {
	if p.err != nil {
		return 0
	}
	v, err := ParseAmount(input)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", field, err)
	}
	return v
}
