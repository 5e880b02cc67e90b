package handler

import (
	"errors"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Singert/cgihttpd/core/request"
	"github.com/Singert/cgihttpd/core/talklog"
)

// cgiWaitDelay 子进程退出后，等待其后代关闭 stdout/stderr 的最长时间
const cgiWaitDelay = 2 * time.Second

// runCGI 把路径当作可执行程序运行，子进程的标准输出原样转发到连接。
// 状态行和响应头都由子进程自己输出。
func (h *Handler) runCGI(r *request.Request) error {
	gid := talklog.GID()
	talklog.SetPrefix(gid, "CGI")
	defer talklog.SetPrefix(gid, "HTTP")
	talklog.Info(gid, "CGI script request: %s", r.Path)

	cmd := exec.Command(r.Path)
	cmd.Env = CGIEnv(h.Cfg, r)
	// 独立进程组，客户端断开时可以连同脚本启动的子进程一起结束
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = cgiWaitDelay

	stderr := talklog.Writer(gid, "WARN")
	defer stderr.Close()
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return internal("stdout pipe for %s: %v", r.Path, err)
	}
	if err := cmd.Start(); err != nil {
		return internal("cannot start %s: %v", r.Path, err)
	}

	n, err := copyChunks(r, stdout)
	if err == nil {
		err = r.Flush()
	}
	if err != nil {
		// 没人再读管道，不结束进程组的话脚本会阻塞在写上，Wait 永远不返回
		talklog.Error(gid, "Error forwarding CGI output after %d bytes: %v", n, err)
		if kerr := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); kerr != nil && !errors.Is(kerr, unix.ESRCH) {
			talklog.Warn(gid, "Cannot kill CGI process group %d: %v", cmd.Process.Pid, kerr)
			cmd.Process.Kill()
		}
	}

	// 退出状态不影响响应
	if err := cmd.Wait(); err != nil {
		talklog.Debug(gid, "CGI script %s exited: %v", r.Path, err)
	}
	talklog.Info(gid, "CGI script finished, %d bytes forwarded", n)
	return nil
}
