package detect

import "context"

// windowSample carries the byte windows requested during step 2 (spec.md
// §4.3): head is always present; tail/mid are filled only when the object
// is large enough to justify them.
type windowSample struct {
	head []byte
	tail []byte
	mid  []byte
}

// sample fetches up to three byte windows, aborting once cumulative bytes
// read reach MaxTotalBytes. rangeIgnored is true if any response came back
// as a full 200 instead of a partial 206.
func (d *Detector) sample(ctx context.Context, cid string, size *int64) (windowSample, bool, error) {
	s := d.cfg.SampleBytes
	var out windowSample
	var total int64
	var rangeIgnored bool

	head, err := d.gw.GetRange(ctx, cid, 0, s-1, s)
	if err != nil {
		return out, false, err
	}
	out.head = head.Body
	total += int64(len(head.Body))
	if head.RangeIgnored {
		rangeIgnored = true
		return out, rangeIgnored, nil
	}

	if size == nil || total >= d.cfg.MaxTotalBytes {
		return out, rangeIgnored, nil
	}

	if *size > s {
		tailResp, err := d.gw.GetRange(ctx, cid, *size-s, *size-1, s)
		if err == nil {
			out.tail = tailResp.Body
			total += int64(len(tailResp.Body))
			if tailResp.RangeIgnored {
				rangeIgnored = true
			}
		}
	}

	if total >= d.cfg.MaxTotalBytes {
		return out, rangeIgnored, nil
	}

	if *size > 2*s {
		mid := *size/2 - s/2
		midResp, err := d.gw.GetRange(ctx, cid, mid, mid+s-1, s)
		if err == nil {
			out.mid = midResp.Body
			if midResp.RangeIgnored {
				rangeIgnored = true
			}
		}
	}

	return out, rangeIgnored, nil
}
