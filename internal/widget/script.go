package widget

// bridgeJS runs the page side of the bridge: it loads the IFrame API once,
// hosts the players the server constructs and reports everything the server
// needs back over the socket. It expects SOCKET_URL to be declared first.
const bridgeJS = `
        var root = document.getElementById('pk-root');
        var frame = document.getElementById('pk-frame');
        var players = {};
        var queued = [];
        var socket = new WebSocket(SOCKET_URL);

        function send(msg) {
            if (socket.readyState === WebSocket.OPEN) socket.send(JSON.stringify(msg));
            else queued.push(msg);
        }

        var API_READY = new Promise(function(resolve, reject) {
            if (window.YT && window.YT.Player) return resolve();
            var tag = document.createElement('script');
            tag.src = 'https://www.youtube.com/iframe_api';
            tag.onerror = function() { reject(new Error('iframe api script failed to load')); };
            window.onYouTubeIframeAPIReady = function() { resolve(); };
            document.head.appendChild(tag);
        });
        API_READY.then(function() { send({type: 'api'}); }, function(err) { send({type: 'api', error: String(err && err.message || err)}); });

        function construct(msg) {
            API_READY.then(function() {
                frame.innerHTML = '';
                var mount = document.createElement('div');
                mount.id = 'pk-mount-' + msg.player;
                frame.appendChild(mount);
                players[msg.player] = new YT.Player(mount.id, {
                    width: '100%',
                    height: '100%',
                    videoId: msg.video,
                    playerVars: msg.vars || {},
                    events: {
                        onReady: function(e) {
                            send({type: 'ready', player: msg.player, duration: e.target.getDuration()});
                        },
                        onStateChange: function(e) {
                            send({type: 'stateChange', player: msg.player, state: e.data});
                        }
                    }
                });
            });
        }

        function call(msg) {
            var p = players[msg.player];
            if (!p) return;
            if (msg.method === 'getCurrentTime') {
                send({type: 'time', player: msg.player, time: p.getCurrentTime()});
                return;
            }
            if (typeof p[msg.method] === 'function') p[msg.method].apply(p, msg.args || []);
        }

        function destroy(msg) {
            var p = players[msg.player];
            delete players[msg.player];
            try { if (p) p.destroy(); } catch (_) {}
        }

        function render(msg) {
            var region = root.querySelector('[data-region="' + msg.region + '"]');
            if (region) region.innerHTML = msg.html;
        }

        function fullscreen(msg) {
            if (msg.on) {
                var req = root.requestFullscreen || root.webkitRequestFullscreen;
                if (!req) return send({type: 'fullscreenChange', fullscreen: false});
                Promise.resolve(req.call(root)).catch(function() {
                    send({type: 'fullscreenChange', fullscreen: false});
                });
            } else if (document.fullscreenElement) {
                document.exitFullscreen().catch(function() {});
            }
        }

        var handlers = {
            construct: construct,
            call: call,
            destroy: destroy,
            render: render,
            fullscreen: fullscreen,
            scroll: function(msg) { document.body.style.overflow = msg.on ? 'hidden' : ''; },
            close: function() { root.classList.add('closed'); }
        };

        socket.addEventListener('open', function() {
            socket.send(JSON.stringify({
                type: 'hello',
                fullscreen: !!(document.fullscreenEnabled || document.webkitFullscreenEnabled),
                touch: window.matchMedia('(pointer: coarse)').matches,
                width: window.innerWidth
            }));
            queued.splice(0).forEach(send);
        });
        socket.addEventListener('message', function(e) {
            var msg;
            try { msg = JSON.parse(e.data); } catch (_) { return; }
            var h = handlers[msg.type];
            if (h) h(msg);
        });

        document.addEventListener('fullscreenchange', function() {
            send({type: 'fullscreenChange', fullscreen: document.fullscreenElement === root});
        });

        document.addEventListener('keydown', function(e) {
            if (e.target.tagName === 'INPUT' && e.key !== 'Escape') return;
            if (e.key === ' ') e.preventDefault();
            send({type: 'key', key: e.key});
        });

        root.addEventListener('click', function(e) {
            var el = e.target.closest('[data-intent]');
            if (el && el.tagName !== 'INPUT') {
                e.stopPropagation();
                send({type: 'intent', action: el.dataset.intent, value: el.dataset.value || ''});
                return;
            }
            var item = e.target.closest('[data-index]');
            if (item) {
                send({type: 'intent', action: 'select', value: item.dataset.index});
                return;
            }
            send({type: 'click', target: e.target.closest('.pk-content') ? 'content' : 'backdrop'});
        });

        root.addEventListener('change', function(e) {
            if (e.target.dataset.intent === 'volume') {
                send({type: 'intent', action: 'volume', value: e.target.value});
            }
        });

        var inside = false, focus = false;
        function pointer() { send({type: 'pointer', inside: inside, focus: focus}); }
        frame.parentElement.addEventListener('mouseenter', function() { inside = true; pointer(); });
        frame.parentElement.addEventListener('mouseleave', function() { inside = false; pointer(); });
        root.addEventListener('focusin', function() { focus = true; pointer(); });
        root.addEventListener('focusout', function(e) {
            if (!root.contains(e.relatedTarget)) { focus = false; pointer(); }
        });
`
