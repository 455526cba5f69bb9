package events

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pythgo/lib/pyth"
)

const PROGRAM_LOG = "Program log: "

const PROGRAM_LOG_START_INDEX = len(PROGRAM_LOG)

var (
	pricePattern       = regexp.MustCompile(`^Price: \((-?\d+) ± (\d+)\) \* 10\^(-?\d+)$`)
	plainPricePattern  = regexp.MustCompile(`^Price: (-?\d+)$`)
	confidencePattern  = regexp.MustCompile(`^Confidence: (\d+)$`)
	exponentPattern    = regexp.MustCompile(`^Exponent: (-?\d+)$`)
	feedIdPattern      = regexp.MustCompile(`^Feed ID: \[([\d, ]+)\]$`)
	publishTimePattern = regexp.MustCompile(`^Publish Time: (-?\d+)$`)
	successPattern     = regexp.MustCompile(`^Program (.*) success$`)
)

// ParseLogs returns the events logged by programId itself. Lines logged by
// programs it invokes are skipped.
func ParseLogs(
	logs []string,
	programId string,
) []*Event {
	var events []*Event
	execution := &ExecutionContext{}

	for _, log := range logs {
		if strings.HasPrefix(log, "Log truncated") {
			break
		}
		event, newProgram, didPop := handleLog(
			execution,
			log,
			programId,
		)
		if event != nil {
			events = append(events, event)
		}
		if newProgram != "" {
			execution.Push(newProgram)
		}
		if didPop {
			execution.Pop()
		}
	}
	return events
}

// ParsePriceLog folds the price events of one transaction into a PriceLog. It
// returns false when the program logged no price.
func ParsePriceLog(
	logs []string,
	programId string,
) (*PriceLog, bool) {
	var priceLog PriceLog
	found := false
	for _, event := range ParseLogs(logs, programId) {
		switch event.EventType {
		case EventTypePrice:
			record := event.Data.(*PriceRecord)
			priceLog.Price = record.Price
			if record.Conf != nil {
				priceLog.Conf = record.Conf
			}
			if record.Exponent != nil {
				priceLog.Exponent = record.Exponent
			}
			found = true
		case EventTypeConfidence:
			priceLog.Conf = event.Data.(*uint64)
		case EventTypeExponent:
			priceLog.Exponent = event.Data.(*int32)
		case EventTypeFeedId:
			priceLog.FeedId = event.Data.(*pyth.FeedId)
		case EventTypePublishTime:
			priceLog.PublishTime = event.Data.(*int64)
		}
	}
	return &priceLog, found
}

func handleLog(execution *ExecutionContext, log string, programId string) (*Event, string, bool) {
	if execution.Program() == programId {
		return handleProgramLog(log, programId)
	} else {
		newProgram, didPop := handleSystemLog(log, programId)
		return nil, newProgram, didPop
	}
}

func handleProgramLog(log string, programId string) (*Event, string, bool) {
	if strings.HasPrefix(log, PROGRAM_LOG) {
		logStr := log[PROGRAM_LOG_START_INDEX:]
		return parseEvent(logStr), "", false
	} else {
		newProgram, didPop := handleSystemLog(log, programId)
		return nil, newProgram, didPop
	}
}

func handleSystemLog(log string, programId string) (string, bool) {
	logStart := strings.Split(log, ":")[0]
	programStart := fmt.Sprintf("Program %s invoke", programId)
	if successPattern.MatchString(logStart) || strings.HasPrefix(log, "Program "+programId+" failed") {
		return "", true
	}
	if strings.HasPrefix(logStart, programStart) {
		return programId, false
	}
	// CPI call.
	if strings.Contains(logStart, "invoke") {
		return "cpi", false // Any string will do.
	}
	return "", false
}

func parseEvent(log string) *Event {
	if m := pricePattern.FindStringSubmatch(log); m != nil {
		price, err1 := strconv.ParseInt(m[1], 10, 64)
		conf, err2 := strconv.ParseUint(m[2], 10, 64)
		exponent, err3 := strconv.ParseInt(m[3], 10, 32)
		if err1 == nil && err2 == nil && err3 == nil {
			expo := int32(exponent)
			return &Event{
				Data:      &PriceRecord{Price: &price, Conf: &conf, Exponent: &expo},
				EventType: EventTypePrice,
			}
		}
	}
	if m := plainPricePattern.FindStringSubmatch(log); m != nil {
		if price, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return &Event{Data: &PriceRecord{Price: &price}, EventType: EventTypePrice}
		}
	}
	if m := confidencePattern.FindStringSubmatch(log); m != nil {
		if conf, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			return &Event{Data: &conf, EventType: EventTypeConfidence}
		}
	}
	if m := exponentPattern.FindStringSubmatch(log); m != nil {
		if exponent, err := strconv.ParseInt(m[1], 10, 32); err == nil {
			expo := int32(exponent)
			return &Event{Data: &expo, EventType: EventTypeExponent}
		}
	}
	if m := publishTimePattern.FindStringSubmatch(log); m != nil {
		if publishTime, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return &Event{Data: &publishTime, EventType: EventTypePublishTime}
		}
	}
	if m := feedIdPattern.FindStringSubmatch(log); m != nil {
		if feedId, ok := parseByteList(m[1]); ok {
			return &Event{Data: &feedId, EventType: EventTypeFeedId}
		}
	}
	return &Event{
		Data:      log,
		EventType: EventTypeRaw,
	}
}

// parseByteList reads a debug-printed byte array such as "230, 45, 246".
func parseByteList(s string) (pyth.FeedId, bool) {
	var feedId pyth.FeedId
	parts := strings.Split(s, ",")
	if len(parts) != pyth.FeedIdLen {
		return feedId, false
	}
	for i, part := range parts {
		b, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
		if err != nil {
			return feedId, false
		}
		feedId[i] = byte(b)
	}
	return feedId, true
}

type ExecutionContext struct {
	stack []string
}

func (p *ExecutionContext) Program() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

func (p *ExecutionContext) Push(newProgram string) {
	p.stack = append(p.stack, newProgram)
}

func (p *ExecutionContext) Pop() {
	if len(p.stack) == 0 {
		return
	}
	p.stack = p.stack[:len(p.stack)-1]
}
